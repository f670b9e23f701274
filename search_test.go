package lshvec

import (
	"context"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/lsh"
	"github.com/hupe1980/lshvec/testutil"
)

func shareBucket(t *testing.T, cfg *lsh.Config, a, b []float32) bool {
	t.Helper()
	ka, err := cfg.BucketKeys(a)
	require.NoError(t, err)
	kb, err := cfg.BucketKeys(b)
	require.NoError(t, err)
	for i := range ka {
		if ka[i] == kb[i] {
			return true
		}
	}
	return false
}

func TestSearchExampleScenario(t *testing.T) {
	ctx := context.Background()
	a := []float32{1, 0, 0, 0}
	b := []float32{0, 1, 0, 0}
	c := []float32{1, 0, 0, 0.001}
	params := lsh.Params{NFeatures: 4, NPlanes: 2, BitStart: 2, BitScaleFactor: 1}

	var cfg *lsh.Config
	for seed := uint64(1); seed < 100 && cfg == nil; seed++ {
		candidate, err := lsh.Generate("example", params, lsh.WithSeed(seed))
		require.NoError(t, err)
		if shareBucket(t, candidate, a, c) {
			cfg = candidate
		}
	}
	require.NotNil(t, cfg, "no seed puts A and C in a common bucket")

	p0, _ := cfg.Plane(0)
	p1, _ := cfg.Plane(1)
	assert.Equal(t, 2, p0.Bits)
	assert.Equal(t, 3, p1.Bits)

	idx, err := NewIndex(cfg, kvstore.NewMemoryStore(), kvstore.NewMemoryStore())
	require.NoError(t, err)
	for _, v := range []Vector{{ID: "A", Values: a}, {ID: "B", Values: b}, {ID: "C", Values: c}} {
		require.NoError(t, idx.Insert(ctx, v))
	}

	results, err := idx.Search(ctx, a, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "A", results[0].ID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "C", results[1].ID)
	assert.InDelta(t, 0.9999995, results[1].Score, 1e-6)
	assert.Equal(t, c, results[1].Values)

	results, err = idx.Search(ctx, a, 3)
	require.NoError(t, err)
	if shareBucket(t, cfg, a, b) {
		require.Len(t, results, 3)
		assert.Equal(t, "B", results[2].ID)
		assert.InDelta(t, 0.0, results[2].Score, 1e-9)
	} else {
		assert.Len(t, results, 2)
	}
}

func TestSearchFindsInsertedVector(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(11)
	idx, _, _ := newTestIndex(t, lsh.Params{NFeatures: 16, NPlanes: 4, BitStart: 6, BitScaleFactor: 0})

	data := rng.UnitVectors(200, 16)
	ids := testutil.IDs("v", 200)
	batch := make([]Vector, len(data))
	for i := range data {
		batch[i] = Vector{ID: ids[i], Values: data[i]}
	}
	require.NoError(t, idx.InsertBatch(ctx, batch))

	for i := 0; i < 200; i += 17 {
		results, err := idx.Search(ctx, data[i], 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, ids[i], results[0].ID)
		assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	}
}

func TestSearchNearDuplicates(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(5)
	idx, _, _ := newTestIndex(t, lsh.Params{NFeatures: 32, NPlanes: 8, BitStart: 4, BitScaleFactor: 0})

	data := rng.UnitVectors(100, 32)
	ids := testutil.IDs("v", 100)
	batch := make([]Vector, len(data))
	for i := range data {
		batch[i] = Vector{ID: ids[i], Values: data[i]}
	}
	require.NoError(t, idx.InsertBatch(ctx, batch))

	hits := 0
	for i := range 20 {
		results, err := idx.Search(ctx, rng.Perturb(data[i], 0.01), 1)
		require.NoError(t, err)
		if len(results) == 1 && results[0].ID == ids[i] {
			hits++
		}
	}
	assert.GreaterOrEqual(t, hits, 18)
}

func TestSearchEmptyIndex(t *testing.T) {
	idx, _, _ := newTestIndex(t, testParams(4))
	results, err := idx.Search(context.Background(), []float32{1, 2, 3, 4}, 10)
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)

	mresults, err := idx.SearchWithMetadata(context.Background(), []float32{1, 2, 3, 4}, 10)
	require.NoError(t, err)
	assert.Empty(t, mresults)
}

func TestSearchTopKBound(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(9)
	// One 1-bit plane splits the space in two halves.
	params := lsh.Params{NFeatures: 8, NPlanes: 1, BitStart: 1, BitScaleFactor: 0}
	idx, _, _ := newTestIndex(t, params)

	data := rng.UnitVectors(40, 8)
	ids := testutil.IDs("v", 40)
	batch := make([]Vector, len(data))
	for i := range data {
		batch[i] = Vector{ID: ids[i], Values: data[i]}
	}
	require.NoError(t, idx.InsertBatch(ctx, batch))

	query := rng.UnitVector(8)
	candidates := 0
	for _, v := range data {
		if shareBucket(t, idx.Config(), query, v) {
			candidates++
		}
	}
	require.Positive(t, candidates)

	for _, k := range []int{1, 5, candidates, candidates + 10} {
		results, err := idx.Search(ctx, query, k)
		require.NoError(t, err)
		assert.Len(t, results, min(k, candidates))
		assert.True(t, slices.IsSortedFunc(results, func(a, b Result) int {
			switch {
			case a.Score > b.Score:
				return -1
			case a.Score < b.Score:
				return 1
			}
			return 0
		}))
	}
}

func TestSearchTieBreak(t *testing.T) {
	ctx := context.Background()
	idx, _, _ := newTestIndex(t, testParams(4))
	v := []float32{0.5, 0.5, 0.5, 0.5}
	require.NoError(t, idx.InsertBatch(ctx, []Vector{
		{ID: "c", Values: v}, {ID: "a", Values: v}, {ID: "b", Values: v},
	}))

	results, err := idx.Search(ctx, v, 3)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{results[0].ID, results[1].ID, results[2].ID})
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()
	idx, _, _ := newTestIndex(t, testParams(4))

	_, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 0)
	assert.ErrorIs(t, err, ErrInvalidK)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = idx.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = idx.Search(ctx, []float32{0, 0, 0, 0}, 1)
	assert.ErrorIs(t, err, ErrNumeric)

	_, err = idx.SearchWithMetadata(ctx, []float32{1, 0, 0, 0}, -1)
	assert.ErrorIs(t, err, ErrInvalidK)
}

func TestSearchSkipsUnrankableCandidates(t *testing.T) {
	ctx := context.Background()
	idx, vectors, buckets := newTestIndex(t, testParams(4))
	q := []float32{1, 2, 3, 4}
	require.NoError(t, idx.Insert(ctx, Vector{ID: "good", Values: q}))

	// Rows written by another writer: a zero vector and a wrong length.
	require.NoError(t, vectors.PutBatch(ctx, []kvstore.Record{
		{ID: "zero", Vector: []float32{0, 0, 0, 0}},
		{ID: "short", Vector: []float32{1, 2}},
	}))
	keys, err := idx.Config().BucketKeys(q)
	require.NoError(t, err)
	require.NoError(t, buckets.UnionColumn(ctx, keys[0], BucketColumn, []string{"zero", "short", "gone"}))

	results, err := idx.Search(ctx, q, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "good", results[0].ID)
}

func TestSearchMaxCandidatesPerBucket(t *testing.T) {
	ctx := context.Background()
	params := lsh.Params{NFeatures: 4, NPlanes: 1, BitStart: 2, BitScaleFactor: 0}
	v := []float32{1, 1, 0, 0}
	ids := testutil.IDs("v", 10)
	batch := make([]Vector, len(ids))
	for i, id := range ids {
		batch[i] = Vector{ID: id, Values: v}
	}

	limited, _, _ := newTestIndex(t, params, WithMaxCandidatesPerBucket(3))
	require.NoError(t, limited.InsertBatch(ctx, batch))
	results, err := limited.Search(ctx, v, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	// Bucket members are sorted, so the cap keeps v-0, v-1 and v-2.
	assert.Equal(t, []string{"v-0", "v-1", "v-2"}, []string{results[0].ID, results[1].ID, results[2].ID})

	unlimited, _, _ := newTestIndex(t, params, WithMaxCandidatesPerBucket(0))
	require.NoError(t, unlimited.InsertBatch(ctx, batch))
	results, err = unlimited.Search(ctx, v, 10)
	require.NoError(t, err)
	assert.Len(t, results, 10)
}

func TestSearchWithMetadata(t *testing.T) {
	ctx := context.Background()
	idx, _, _ := newTestIndex(t, testParams(4))
	require.NoError(t, idx.InsertBatch(ctx, []Vector{
		{ID: "a", Values: []float32{1, 0, 0, 0}},
		{ID: "b", Values: []float32{1, 0.1, 0, 0}},
		{ID: "c", Values: []float32{1, 0.2, 0, 0}},
	}))
	require.NoError(t, idx.InsertMetadata(ctx, map[string]map[string]any{
		"a": {"title": "first", "rank": 1},
		"c": {"title": "third"},
	}))

	plain, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)

	results, err := idx.SearchWithMetadata(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)

	var want []string
	for _, r := range plain {
		if r.ID != "b" {
			want = append(want, r.ID)
		}
	}
	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.ID
	}
	assert.Equal(t, want, got)

	for _, r := range results {
		switch r.ID {
		case "a":
			assert.Equal(t, "first", r.Metadata["title"])
			// Metadata is stored as JSON.
			assert.Equal(t, float64(1), r.Metadata["rank"])
		case "c":
			assert.Equal(t, "third", r.Metadata["title"])
		}
	}
}
