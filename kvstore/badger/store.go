package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/hupe1980/lshvec/kvstore"
)

// ErrTooManyConflicts is returned when a union keeps conflicting with
// concurrent writers.
var ErrTooManyConflicts = errors.New("badger: too many transaction conflicts")

// Options configures a DB.
type Options struct {
	// Dir is the directory for BadgerDB data files.
	// Required unless InMemory is set.
	Dir string

	// InMemory runs BadgerDB without disk persistence.
	InMemory bool

	// Logger receives Badger's warnings and errors. If nil, slog.Default().
	Logger *slog.Logger

	// MaxConflictRetries bounds UnionColumn re-runs. Default 100.
	MaxConflictRetries int
}

// DB owns a Badger database and hands out tables.
type DB struct {
	db         *badger.DB
	maxRetries int
}

// Open opens (or creates) a Badger database.
func Open(opts Options) (*DB, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("badger: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir)
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	dbOpts = dbOpts.WithLogger(slogAdapter{l: logger.With("component", "badger")})

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	maxRetries := opts.MaxConflictRetries
	if maxRetries <= 0 {
		maxRetries = 100
	}
	return &DB{db: db, maxRetries: maxRetries}, nil
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

func get(txn *badger.Txn, key []byte) (kvstore.Record, error) {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return kvstore.Record{}, kvstore.ErrNotFound
		}
		return kvstore.Record{}, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return kvstore.Record{}, err
	}
	return kvstore.DecodeRecord(val)
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id string) (kvstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return kvstore.Record{}, err
	}
	var r kvstore.Record
	err := s.db.db.View(func(txn *badger.Txn) error {
		var err error
		r, err = get(txn, kvstore.RowKey(s.prefix, id))
		return err
	})
	return r, err
}

// GetBulk reads ids in one read transaction.
func (s *Store) GetBulk(ctx context.Context, ids []string) ([]kvstore.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]kvstore.Record, 0, len(ids))
	err := s.db.db.View(func(txn *badger.Txn) error {
		for _, id := range kvstore.UniqueIDs(ids) {
			r, err := get(txn, kvstore.RowKey(s.prefix, id))
			if errors.Is(err, kvstore.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, r)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Put upserts a record.
func (s *Store) Put(ctx context.Context, r kvstore.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, val, err := s.encode(r)
	if err != nil {
		return err
	}
	return s.db.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
}

// PutBatch upserts records through a WriteBatch.
func (s *Store) PutBatch(ctx context.Context, rs []kvstore.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(rs) == 0 {
		return nil
	}
	// WriteBatch does not order duplicate keys; keep the last one only.
	rs = kvstore.LastWins(rs)

	wb := s.db.db.NewWriteBatch()
	defer wb.Cancel()
	for _, r := range rs {
		key, val, err := s.encode(r)
		if err != nil {
			return err
		}
		if err := wb.Set(key, val); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// UnionColumn reads the row, unions the column and writes it back,
// re-running the transaction on conflicts.
func (s *Store) UnionColumn(ctx context.Context, key, column string, values []string) error {
	if key == "" {
		return kvstore.ErrInvalidID
	}
	if err := kvstore.ValidateColumn(column); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	k := kvstore.RowKey(s.prefix, key)
	for attempt := 0; attempt < s.db.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := s.db.db.Update(func(txn *badger.Txn) error {
			r, err := get(txn, k)
			switch {
			case errors.Is(err, kvstore.ErrNotFound):
				r = kvstore.Record{ID: key}
			case err != nil:
				return err
			}
			r = kvstore.MergeRecords(r, kvstore.Record{Sets: map[string][]string{column: values}})
			b, err := kvstore.EncodeRecord(r)
			if err != nil {
				return err
			}
			return txn.Set(k, b)
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("%w: %s", ErrTooManyConflicts, key)
}

func (s *Store) encode(r kvstore.Record) ([]byte, []byte, error) {
	if err := kvstore.ValidateRecord(r); err != nil {
		return nil, nil, err
	}
	r.Sets = kvstore.NormalizeSets(r.Sets)
	b, err := kvstore.EncodeRecord(r)
	if err != nil {
		return nil, nil, err
	}
	return kvstore.RowKey(s.prefix, r.ID), b, nil
}

// slogAdapter routes Badger's logger to slog, dropping info and debug output.
type slogAdapter struct {
	l *slog.Logger
}

func (a slogAdapter) Errorf(f string, v ...interface{}) {
	a.l.Error(fmt.Sprintf(f, v...))
}

func (a slogAdapter) Warningf(f string, v ...interface{}) {
	a.l.Warn(fmt.Sprintf(f, v...))
}

func (slogAdapter) Infof(string, ...interface{})  {}
func (slogAdapter) Debugf(string, ...interface{}) {}

var (
	_ kvstore.Store    = (*Store)(nil)
	_ kvstore.Provider = (*DB)(nil)
	_ badger.Logger    = slogAdapter{}
)
