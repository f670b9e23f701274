// Package redis implements kvstore.Store on Redis using go-redis v8.
//
// Key layout for table T under prefix P, with n = len(id):
//
//	P T :{n:id}:r        hash   vector, metadata, data (+ "_" marker)
//	P T :{n:id}:c        set    names of the row's set columns
//	P T :{n:id}:s:col    set    members of one set column
//
// The {n:id} hash tag keeps every key of a row in one cluster slot.
//
// UnionColumn is a MULTI/EXEC of HSET marker, SADD column name and SADD
// members, all of which are idempotent. Put replaces a row under WATCH on
// its column registry so no concurrently added column survives a replace.
// PutBatch writes all rows in one transaction on a single node and one
// transaction per row on a redis.ClusterClient.
package redis
