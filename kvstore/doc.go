// Package kvstore defines the key-value storage contract an index runs on.
//
// An index uses two tables: one holding vector (and metadata) records and one
// holding buckets, where each bucket is a record whose "ids" set column is
// grown with UnionColumn. Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process maps, for tests and embedded use
//   - dynamodb.Store: Amazon DynamoDB (string-set ADD updates)
//   - pebble.Store: CockroachDB Pebble (merge operator)
//   - badger.Store: BadgerDB (transactional read-modify-write)
//   - redis.Store: Redis (SADD)
//   - sqlite.Store: SQLite via modernc.org/sqlite (INSERT OR IGNORE)
//
// # Contract
//
//	Get(ctx, id)                          // ErrNotFound when absent
//	GetBulk(ctx, ids)                     // found subset, request order, no duplicates
//	Put(ctx, rec) / PutBatch(ctx, recs)   // upsert, replaces the whole record
//	UnionColumn(ctx, key, column, values) // atomic set union, creates the row
//
// UnionColumn must be commutative, associative and idempotent: concurrent
// callers merging into the same key never lose a value.
package kvstore
