package pebble

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cockroachdb/pebble"

	"github.com/hupe1980/lshvec/kvstore"
)

// Options configures a DB.
type Options struct {
	// NoSync skips fsync on commit. Faster, loses the most recent writes on
	// a crash.
	NoSync bool

	// Tuning is applied to the Pebble options before opening. Optional.
	Tuning func(*pebble.Options)
}

// DB owns a Pebble database and hands out tables.
type DB struct {
	db        *pebble.DB
	writeOpts *pebble.WriteOptions
}

// Open opens (or creates) the database at dir.
func Open(dir string, opts Options) (*DB, error) {
	dbOpts := &pebble.Options{Merger: Merger}
	if opts.Tuning != nil {
		opts.Tuning(dbOpts)
		dbOpts.Merger = Merger
	}

	db, err := pebble.Open(dir, dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dir, err)
	}

	writeOpts := pebble.Sync
	if opts.NoSync {
		writeOpts = pebble.NoSync
	}
	return &DB{db: db, writeOpts: writeOpts}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Table returns the store for name.
func (d *DB) Table(_ context.Context, name string) (kvstore.Store, error) {
	return d.Store(name)
}

// Store is Table with the concrete type.
func (d *DB) Store(name string) (*Store, error) {
	prefix, err := kvstore.TableKeyPrefix(name)
	if err != nil {
		return nil, err
	}
	return &Store{db: d, prefix: prefix}, nil
}

// Store is one table of a DB.
type Store struct {
	db     *DB
	prefix []byte
}

type getter interface {
	Get(key []byte) ([]byte, io.Closer, error)
}

func (s *Store) get(g getter, id string) (kvstore.Record, error) {
	value, closer, err := g.Get(kvstore.RowKey(s.prefix, id))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return kvstore.Record{}, kvstore.ErrNotFound
		}
		return kvstore.Record{}, err
	}
	defer closer.Close()
	// value is only valid until closer is closed; decoding copies it.
	return kvstore.DecodeRecord(value)
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (kvstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return kvstore.Record{}, err
	}
	return s.get(s.db.db, id)
}

// GetBulk reads ids from one snapshot.
func (s *Store) GetBulk(ctx context.Context, ids []string) ([]kvstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap := s.db.db.NewSnapshot()
	defer snap.Close()

	out := make([]kvstore.Record, 0, len(ids))
	for _, id := range kvstore.UniqueIDs(ids) {
		r, err := s.get(snap, id)
		if errors.Is(err, kvstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Put upserts a record.
func (s *Store) Put(ctx context.Context, r kvstore.Record) error {
	return s.PutBatch(ctx, []kvstore.Record{r})
}

// PutBatch upserts records in one atomic batch.
func (s *Store) PutBatch(ctx context.Context, rs []kvstore.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rs) == 0 {
		return nil
	}

	batch := s.db.db.NewBatch()
	defer batch.Close()

	for _, r := range rs {
		if err := kvstore.ValidateRecord(r); err != nil {
			return err
		}
		r.Sets = kvstore.NormalizeSets(r.Sets)
		b, err := kvstore.EncodeRecord(r)
		if err != nil {
			return err
		}
		if err := batch.Set(kvstore.RowKey(s.prefix, r.ID), b, nil); err != nil {
			return err
		}
	}
	return batch.Commit(s.db.writeOpts)
}

// UnionColumn writes a merge operand carrying only the new members.
func (s *Store) UnionColumn(ctx context.Context, key, column string, values []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return kvstore.ErrInvalidID
	}
	if err := kvstore.ValidateColumn(column); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	operand, err := kvstore.EncodeRecord(kvstore.Record{
		ID:   key,
		Sets: map[string][]string{column: kvstore.UnionSorted(values, nil)},
	})
	if err != nil {
		return err
	}
	return s.db.db.Merge(kvstore.RowKey(s.prefix, key), operand, s.db.writeOpts)
}

var (
	_ kvstore.Store    = (*Store)(nil)
	_ kvstore.Provider = (*DB)(nil)
)
