// Package lshvec provides an approximate nearest-neighbor index built on
// locality-sensitive hashing over random hyperplanes.
//
// Every index owns a hash family (lsh.Config) of one or more planes. Each
// plane hashes a vector to a bucket key, and the index keeps, per bucket,
// the set of vector ids hashed into it. A search collects the ids from the
// query's buckets and ranks those candidates exactly by cosine similarity.
//
// # Quick Start
//
//	ctx := context.Background()
//	tables := kvstore.NewMemoryProvider()
//	configs := catalog.NewKVStore(tables.MemoryTable("lshvec_catalog"))
//
//	db, _ := lshvec.Open(tables, configs)
//	idx, _ := db.CreateIndex(ctx, "docs", lsh.Params{
//	    NFeatures:      1536,
//	    NPlanes:        4,
//	    BitStart:       8,
//	    BitScaleFactor: 2,
//	})
//
//	_ = idx.InsertBatch(ctx, []lshvec.Vector{{ID: "a", Values: embA}, {ID: "b", Values: embB}})
//	results, _ := idx.Search(ctx, query, 10)
//
// Later, in any process sharing the tables and the catalog:
//
//	idx, _ := db.GetIndex(ctx, "docs")
//
// # Storage
//
// Tables are kvstore.Store values. The kvstore subpackages provide
// DynamoDB, Pebble, Badger, Redis and SQLite backends; configs are saved
// through a catalog.Store, either in a table or as blobs (S3, MinIO, local
// directory).
//
// Bucket writes are set unions, so concurrent inserts from any number of
// goroutines or processes never lose ids and retried inserts are harmless.
//
// # Recall
//
// Search is approximate: a vector whose buckets all differ from the query's
// is never a candidate. More planes raise recall; more bits per plane make
// buckets smaller and searches cheaper.
package lshvec
