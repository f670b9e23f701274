// Package badger implements kvstore.Store on BadgerDB v4.
//
// All tables share one Badger database; a row is the key "<table>\x00<id>"
// holding the msgpack-encoded record. UnionColumn runs a read-modify-write
// transaction. Badger aborts conflicting transactions with ErrConflict, and
// since a set union is idempotent the store simply runs it again.
package badger
