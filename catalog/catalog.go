// Package catalog persists index configurations.
//
// A configuration is written once, when the index is created, and never
// changes afterwards. Two stores are provided: KVStore keeps each framed
// config in the Data attribute of a kvstore record, BlobStore keeps it as
// a blob named "configs/<id>.lshc" for configurations too large for a
// single key-value row.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/lshvec/blobstore"
	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/lsh"
	"github.com/hupe1980/lshvec/persistence"
)

var (
	// ErrExists is returned by Save when a config with the same id exists.
	ErrExists = errors.New("catalog: index already exists")
	// ErrNotFound is returned by Load for unknown ids.
	ErrNotFound = errors.New("catalog: index not found")
)

// Store saves and loads index configurations.
type Store interface {
	// Save persists cfg. It fails with ErrExists if cfg.ID() is taken.
	Save(ctx context.Context, cfg *lsh.Config) error
	// Load returns the config for id, or ErrNotFound.
	Load(ctx context.Context, id string) (*lsh.Config, error)
}

// Option configures a store.
type Option func(*options)

type options struct {
	compression persistence.Compression
}

// WithCompression sets the frame compression for saved configs.
// Default is zstd.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

func applyOptions(opts []Option) options {
	o := options{compression: persistence.CompressionZSTD}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// KVStore keeps configs in a key-value table.
//
// Save checks for an existing record before writing. The check is not
// atomic with the write, so callers creating the same id concurrently
// must coordinate.
type KVStore struct {
	table kvstore.Store
	opts  options
}

// NewKVStore creates a catalog on table.
func NewKVStore(table kvstore.Store, opts ...Option) *KVStore {
	return &KVStore{table: table, opts: applyOptions(opts)}
}

// Save implements Store.
func (s *KVStore) Save(ctx context.Context, cfg *lsh.Config) error {
	_, err := s.table.Get(ctx, cfg.ID())
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrExists, cfg.ID())
	case !errors.Is(err, kvstore.ErrNotFound):
		return err
	}

	b, err := persistence.EncodeConfig(cfg, s.opts.compression)
	if err != nil {
		return err
	}
	return s.table.Put(ctx, kvstore.Record{ID: cfg.ID(), Data: b})
}

// Load implements Store.
func (s *KVStore) Load(ctx context.Context, id string) (*lsh.Config, error) {
	r, err := s.table.Get(ctx, id)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	if len(r.Data) == 0 {
		return nil, fmt.Errorf("%w: record %q has no config payload", lsh.ErrInvalidConfig, id)
	}
	return decode(id, r.Data)
}

// BlobStore keeps configs as blobs.
type BlobStore struct {
	blobs blobstore.Store
	opts  options
}

// NewBlobStore creates a catalog on blobs.
func NewBlobStore(blobs blobstore.Store, opts ...Option) *BlobStore {
	return &BlobStore{blobs: blobs, opts: applyOptions(opts)}
}

// BlobName returns the blob name of the config for id.
func BlobName(id string) string {
	return "configs/" + id + ".lshc"
}

// Save implements Store with an atomic create.
func (s *BlobStore) Save(ctx context.Context, cfg *lsh.Config) error {
	b, err := persistence.EncodeConfig(cfg, s.opts.compression)
	if err != nil {
		return err
	}
	if err := s.blobs.PutIfNotExists(ctx, BlobName(cfg.ID()), b); err != nil {
		if errors.Is(err, blobstore.ErrExists) {
			return fmt.Errorf("%w: %s", ErrExists, cfg.ID())
		}
		return err
	}
	return nil
}

// Load implements Store.
func (s *BlobStore) Load(ctx context.Context, id string) (*lsh.Config, error) {
	b, err := s.blobs.Get(ctx, BlobName(id))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, err
	}
	return decode(id, b)
}

// decode also checks that the stored config belongs to id.
func decode(id string, b []byte) (*lsh.Config, error) {
	cfg, err := persistence.DecodeConfig(b)
	if err != nil {
		return nil, fmt.Errorf("catalog: load %s: %w", id, err)
	}
	if cfg.ID() != id {
		return nil, fmt.Errorf("%w: stored config has id %q, want %q", lsh.ErrInvalidConfig, cfg.ID(), id)
	}
	return cfg, nil
}

var (
	_ Store = (*KVStore)(nil)
	_ Store = (*BlobStore)(nil)
)
