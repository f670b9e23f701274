// Package pebble implements kvstore.Store on CockroachDB's Pebble.
//
// All tables share one Pebble database. A row is a single key,
// "<table>\x00<id>", whose value is the msgpack-encoded record. Put writes
// the row with Set. UnionColumn writes a Merge operand holding only the new
// set members; the registered merge operator folds operands into the row
// by set union, so concurrent unions never read-modify-write.
package pebble
