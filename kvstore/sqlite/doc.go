// Package sqlite implements kvstore.Store on SQLite using the pure-Go
// modernc.org/sqlite driver.
//
// All tables share two SQL tables: kv_records holds one row per record and
// kv_sets one row per set member, keyed by (tbl, id, col, member), so that
// UnionColumn is INSERT OR IGNORE.
package sqlite
