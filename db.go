package lshvec

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/hupe1980/lshvec/catalog"
	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/lsh"
)

const (
	vectorTableSuffix = "_vectors"
	bucketTableSuffix = "_buckets"
	maxIndexIDLength  = 200
)

// DB creates and opens indexes. Index configs live in a catalog, the vector
// and bucket tables of index "docs" are the provider tables "docs_vectors"
// and "docs_buckets".
type DB struct {
	tables  kvstore.Provider
	configs catalog.Store
	optFns  []Option
	opts    options
	cache   *lru.Cache[string, *Index]
	loads   singleflight.Group
}

// Open creates a DB. It performs no I/O.
func Open(tables kvstore.Provider, configs catalog.Store, optFns ...Option) (*DB, error) {
	if tables == nil {
		return nil, configErrorf("table provider must not be nil")
	}
	if configs == nil {
		return nil, configErrorf("catalog must not be nil")
	}
	opts := applyOptions(optFns)
	cache, err := lru.New[string, *Index](opts.indexCacheSize)
	if err != nil {
		return nil, configErrorf("index cache: %v", err)
	}
	return &DB{
		tables:  tables,
		configs: configs,
		optFns:  optFns,
		opts:    opts,
		cache:   cache,
	}, nil
}

// VectorTable returns the provider table name of an index's vectors.
func VectorTable(id string) string { return id + vectorTableSuffix }

// BucketTable returns the provider table name of an index's buckets.
func BucketTable(id string) string { return id + bucketTableSuffix }

// ValidateIndexID checks that id can be used in table and blob names:
// 1 to 200 characters from [A-Za-z0-9_.-].
func ValidateIndexID(id string) error {
	if id == "" || len(id) > maxIndexIDLength {
		return configErrorf("index id must have 1 to %d characters, got %d", maxIndexIDLength, len(id))
	}
	for _, c := range id {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '.', c == '-':
		default:
			return configErrorf("index id %q contains %q", id, c)
		}
	}
	return nil
}

// CreateIndex generates a new hash family, saves it and opens the index.
// It fails with ErrExists if the id is taken.
func (db *DB) CreateIndex(ctx context.Context, id string, params lsh.Params) (idx *Index, err error) {
	defer func() {
		db.opts.logger.LogIndexOpen(ctx, id, true, err)
	}()

	if err := ValidateIndexID(id); err != nil {
		return nil, err
	}
	cfg, err := lsh.Generate(id, params, db.opts.generateOptions...)
	if err != nil {
		return nil, translateError(err)
	}
	if err := db.configs.Save(ctx, cfg); err != nil {
		return nil, translateError(err)
	}

	idx, err = db.open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db.cache.Add(id, idx)
	return idx, nil
}

// GetIndex opens an existing index. It fails with ErrNotFound for unknown ids.
func (db *DB) GetIndex(ctx context.Context, id string) (*Index, error) {
	if idx, ok := db.cache.Get(id); ok {
		return idx, nil
	}
	if err := ValidateIndexID(id); err != nil {
		return nil, err
	}

	// The load is shared by every concurrent caller, so it must not inherit
	// the cancellation of whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	ch := db.loads.DoChan(id, func() (any, error) {
		if idx, ok := db.cache.Get(id); ok {
			return idx, nil
		}
		cfg, err := db.configs.Load(loadCtx, id)
		if err != nil {
			return nil, translateError(err)
		}
		idx, err := db.open(loadCtx, cfg)
		if err != nil {
			return nil, err
		}
		db.cache.Add(id, idx)
		return idx, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		res.Err = ctx.Err()
	}
	db.opts.logger.LogIndexOpen(ctx, id, false, res.Err)
	if res.Err != nil {
		return nil, res.Err
	}
	return res.Val.(*Index), nil
}

func (db *DB) open(ctx context.Context, cfg *lsh.Config) (*Index, error) {
	vectors, err := db.tables.Table(ctx, VectorTable(cfg.ID()))
	if err != nil {
		return nil, fmt.Errorf("open vector table: %w", err)
	}
	buckets, err := db.tables.Table(ctx, BucketTable(cfg.ID()))
	if err != nil {
		return nil, fmt.Errorf("open bucket table: %w", err)
	}
	return NewIndex(cfg, vectors, buckets, db.optFns...)
}
