package kvstore

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrNotFound is returned by Get when no record exists for the id.
	ErrNotFound = errors.New("kvstore: not found")

	// ErrInvalidColumn is returned for empty or reserved set-column names.
	ErrInvalidColumn = errors.New("kvstore: invalid column")

	// ErrInvalidID is returned for empty record ids.
	ErrInvalidID = errors.New("kvstore: invalid id")
)

// Reserved attribute names. Set columns must not use them.
const (
	AttrID       = "id"
	AttrVector   = "vector"
	AttrMetadata = "metadata"
	AttrData     = "data"
)

// Record is the unit of storage.
//
// Vector rows use Vector and Metadata, metadata rows use Metadata, bucket
// rows use Sets and catalog rows use Data. Set members are returned sorted.
type Record struct {
	ID       string
	Vector   []float32
	Metadata map[string]any
	Data     []byte
	Sets     map[string][]string
}

// Set returns the members of a set column (nil if absent).
func (r Record) Set(column string) []string {
	return r.Sets[column]
}

// Clone returns a copy of r that shares no slices or maps with it.
// Metadata values are copied shallowly.
func (r Record) Clone() Record {
	c := Record{
		ID:       r.ID,
		Vector:   slices.Clone(r.Vector),
		Metadata: maps.Clone(r.Metadata),
		Data:     slices.Clone(r.Data),
	}
	if r.Sets != nil {
		c.Sets = make(map[string][]string, len(r.Sets))
		for k, v := range r.Sets {
			c.Sets[k] = slices.Clone(v)
		}
	}
	return c
}

// Store is a single table of records.
type Store interface {
	// Get returns the record for id or ErrNotFound.
	Get(ctx context.Context, id string) (Record, error)

	// GetBulk returns the records that exist for ids, in the order of their
	// first occurrence in ids. Missing ids are omitted, never an error.
	GetBulk(ctx context.Context, ids []string) ([]Record, error)

	// Put upserts a record, replacing any previous record with the same id.
	Put(ctx context.Context, r Record) error

	// PutBatch upserts records. If ids repeat, the last one wins.
	PutBatch(ctx context.Context, rs []Record) error

	// UnionColumn atomically adds values to the set column of key,
	// creating the record if absent.
	UnionColumn(ctx context.Context, key, column string, values []string) error
}

// Provider opens named tables.
type Provider interface {
	Table(ctx context.Context, name string) (Store, error)
}

// ValidateColumn rejects empty and reserved set-column names.
func ValidateColumn(column string) error {
	switch column {
	case "", AttrID, AttrVector, AttrMetadata, AttrData:
		return fmt.Errorf("%w: %q", ErrInvalidColumn, column)
	}
	return nil
}

// ValidateRecord rejects records that cannot be stored.
func ValidateRecord(r Record) error {
	if r.ID == "" {
		return ErrInvalidID
	}
	for col := range r.Sets {
		if err := ValidateColumn(col); err != nil {
			return err
		}
	}
	return nil
}

// UnionSorted returns the sorted, de-duplicated union of a and b.
func UnionSorted(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	slices.Sort(out)
	return slices.Compact(out)
}

// UniqueIDs returns ids without duplicates, keeping first occurrences in order.
func UniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// LastWins returns rs with earlier duplicates of an id removed,
// keeping the position of the last occurrence.
func LastWins(rs []Record) []Record {
	last := make(map[string]int, len(rs))
	for i, r := range rs {
		last[r.ID] = i
	}
	if len(last) == len(rs) {
		return rs
	}
	out := make([]Record, 0, len(last))
	for i, r := range rs {
		if last[r.ID] == i {
			out = append(out, r)
		}
	}
	return out
}

// InOrder arranges found records in the order of ids, skipping ids not in found.
func InOrder(ids []string, found map[string]Record) []Record {
	out := make([]Record, 0, len(found))
	for _, id := range UniqueIDs(ids) {
		if r, ok := found[id]; ok {
			out = append(out, r)
		}
	}
	return out
}
