package kvstore

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTable is returned for table names an embedded backend cannot
// encode into its key space.
var ErrInvalidTable = errors.New("kvstore: invalid table name")

// KeySeparator separates table name and record id in embedded key spaces.
const KeySeparator = "\x00"

// TableKeyPrefix validates name and returns the key prefix of its rows.
func TableKeyPrefix(name string) ([]byte, error) {
	if name == "" || strings.Contains(name, KeySeparator) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, name)
	}
	return []byte(name + KeySeparator), nil
}

// RowKey returns prefix+id as a new slice.
func RowKey(prefix []byte, id string) []byte {
	k := make([]byte, 0, len(prefix)+len(id))
	k = append(k, prefix...)
	return append(k, id...)
}

// MergeRecords combines two views of the same row: set columns are unioned,
// other attributes are taken from a when present, else from b.
func MergeRecords(a, b Record) Record {
	out := a
	if out.ID == "" {
		out.ID = b.ID
	}
	if out.Vector == nil {
		out.Vector = b.Vector
	}
	if out.Metadata == nil {
		out.Metadata = b.Metadata
	}
	if out.Data == nil {
		out.Data = b.Data
	}
	if len(b.Sets) > 0 {
		sets := make(map[string][]string, len(a.Sets)+len(b.Sets))
		for col, vals := range a.Sets {
			sets[col] = vals
		}
		for col, vals := range b.Sets {
			sets[col] = UnionSorted(sets[col], vals)
		}
		out.Sets = sets
	}
	return out
}
