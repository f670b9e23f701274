package pebble

import (
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/hupe1980/lshvec/kvstore"
)

// MergerName identifies the merge operator persisted in the database's
// OPTIONS file. A database written with one name cannot be reopened with
// another.
const MergerName = "lshvec.record_union.v1"

// Merger folds set-union operands into records.
var Merger = &pebble.Merger{
	Name:  MergerName,
	Merge: newRecordMerger,
}

type recordMerger struct {
	rec kvstore.Record
}

func newRecordMerger(_, value []byte) (pebble.ValueMerger, error) {
	m := &recordMerger{}
	if err := m.add(value); err != nil {
		return nil, err
	}
	return m, nil
}

// add decodes value immediately; Pebble may reuse the buffer after the call.
func (m *recordMerger) add(value []byte) error {
	r, err := kvstore.DecodeRecord(value)
	if err != nil {
		return err
	}
	m.rec = kvstore.MergeRecords(m.rec, r)
	return nil
}

func (m *recordMerger) MergeNewer(value []byte) error { return m.add(value) }

func (m *recordMerger) MergeOlder(value []byte) error { return m.add(value) }

func (m *recordMerger) Finish(bool) ([]byte, io.Closer, error) {
	b, err := kvstore.EncodeRecord(m.rec)
	return b, nil, err
}
