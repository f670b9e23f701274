package lshvec

import (
	"context"
	"maps"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/lshvec/distance"
	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/lsh"
)

// Index is an LSH index over two tables: vectors holds the vector and
// metadata rows, buckets maps bucket keys to the ids hashed into them.
//
// An Index holds no mutable state. Any number of goroutines and processes
// may use indexes over the same tables concurrently, since every bucket
// write is a set union.
type Index struct {
	cfg     *lsh.Config
	vectors kvstore.Store
	buckets kvstore.Store
	opts    options
	logger  *Logger
}

// NewIndex creates an index handle. It performs no I/O.
func NewIndex(cfg *lsh.Config, vectors, buckets kvstore.Store, optFns ...Option) (*Index, error) {
	switch {
	case cfg == nil:
		return nil, configErrorf("index config must not be nil")
	case vectors == nil:
		return nil, configErrorf("vector store must not be nil")
	case buckets == nil:
		return nil, configErrorf("bucket store must not be nil")
	}
	opts := applyOptions(optFns)
	return &Index{
		cfg:     cfg,
		vectors: vectors,
		buckets: buckets,
		opts:    opts,
		logger:  opts.logger.WithIndex(cfg.ID()),
	}, nil
}

// ID returns the index id.
func (i *Index) ID() string { return i.cfg.ID() }

// Config returns the hash family of the index.
func (i *Index) Config() *lsh.Config { return i.cfg }

func (i *Index) validate(v Vector) error {
	if err := validateID(v.ID); err != nil {
		return err
	}
	if len(v.Values) != i.cfg.NFeatures() {
		return &ErrDimensionMismatch{Expected: i.cfg.NFeatures(), Actual: len(v.Values)}
	}
	if err := distance.CheckFinite(v.Values); err != nil {
		return translateError(err)
	}
	if distance.Norm(v.Values) == 0 {
		return translateError(distance.ErrZeroNorm)
	}
	return nil
}

func vectorRecord(v Vector) kvstore.Record {
	return kvstore.Record{
		ID:       v.ID,
		Vector:   v.Values,
		Metadata: v.Metadata,
	}
}

// Insert stores v and adds its id to one bucket per plane.
//
// Invalid vectors, including zero vectors, fail before any write. Storage errors are returned as is;
// a failed insert may have written the vector and some of its buckets, and
// repeating it is safe.
func (i *Index) Insert(ctx context.Context, v Vector) (err error) {
	start := time.Now()
	defer func() {
		i.opts.metricsCollector.RecordInsert(time.Since(start), err)
		i.logger.LogInsert(ctx, v.ID, i.cfg.NPlanes(), err)
	}()

	if err := i.validate(v); err != nil {
		return err
	}
	keys, err := i.cfg.BucketKeys(v.Values)
	if err != nil {
		return translateError(err)
	}

	if err := i.vectors.Put(ctx, vectorRecord(v)); err != nil {
		return err
	}
	for _, key := range keys {
		if err := i.buckets.UnionColumn(ctx, key, BucketColumn, []string{v.ID}); err != nil {
			return err
		}
	}
	return nil
}

// InsertBatch stores vs and updates every touched bucket once.
//
// All vectors are validated before anything is written. Bucket unions run
// in parallel, bounded by WithConcurrency. If an id repeats, the last vector
// wins the vector record while every occurrence is added to its buckets.
func (i *Index) InsertBatch(ctx context.Context, vs []Vector) (err error) {
	if len(vs) == 0 {
		return nil
	}

	start := time.Now()
	var nBuckets int
	defer func() {
		i.opts.metricsCollector.RecordBatchInsert(len(vs), nBuckets, time.Since(start), err)
		i.logger.LogBatchInsert(ctx, len(vs), nBuckets, err)
	}()

	records := make([]kvstore.Record, len(vs))
	groups := make(map[string][]string)
	for n, v := range vs {
		if err := i.validate(v); err != nil {
			return err
		}
		keys, err := i.cfg.BucketKeys(v.Values)
		if err != nil {
			return translateError(err)
		}
		for _, key := range keys {
			groups[key] = append(groups[key], v.ID)
		}
		records[n] = vectorRecord(v)
	}
	nBuckets = len(groups)

	if err := i.vectors.PutBatch(ctx, records); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.concurrency)
	for _, key := range slices.Sorted(maps.Keys(groups)) {
		ids := kvstore.UniqueIDs(groups[key])
		g.Go(func() error {
			return i.buckets.UnionColumn(gctx, key, BucketColumn, ids)
		})
	}
	return g.Wait()
}

// GetItem returns the vector stored under id.
func (i *Index) GetItem(ctx context.Context, id string) (Vector, error) {
	if err := validateID(id); err != nil {
		return Vector{}, err
	}
	r, err := i.vectors.Get(ctx, id)
	if err != nil {
		return Vector{}, translateError(err)
	}
	return Vector{ID: r.ID, Values: r.Vector, Metadata: r.Metadata}, nil
}

// GetBulkItems returns the stored vectors among ids, in the order of ids.
// Unknown ids are skipped.
func (i *Index) GetBulkItems(ctx context.Context, ids []string) ([]Vector, error) {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if validateID(id) == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []Vector{}, nil
	}

	rs, err := i.vectors.GetBulk(ctx, valid)
	if err != nil {
		return nil, translateError(err)
	}
	out := make([]Vector, len(rs))
	for n, r := range rs {
		out[n] = Vector{ID: r.ID, Values: r.Vector, Metadata: r.Metadata}
	}
	return out, nil
}

// InsertMetadata stores metadata rows keyed by vector id. They are
// independent of the vectors and read back by SearchWithMetadata.
func (i *Index) InsertMetadata(ctx context.Context, metadata map[string]map[string]any) error {
	if len(metadata) == 0 {
		return nil
	}
	ids := slices.Sorted(maps.Keys(metadata))
	records := make([]kvstore.Record, len(ids))
	for n, id := range ids {
		if err := validateID(id); err != nil {
			return err
		}
		md := metadata[id]
		if md == nil {
			md = map[string]any{}
		}
		records[n] = kvstore.Record{ID: metadataKey(id), Metadata: md}
	}
	return i.vectors.PutBatch(ctx, records)
}
