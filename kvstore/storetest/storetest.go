// Package storetest provides a conformance suite for kvstore.Store
// implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec/kvstore"
)

// Factory returns an empty store. Cleanup is registered on t.
type Factory func(t *testing.T) kvstore.Store

// Run executes the conformance suite, each case against a fresh store.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s kvstore.Store)
	}{
		{"GetMissing", testGetMissing},
		{"PutGet", testPutGet},
		{"PutReplaces", testPutReplaces},
		{"PutInvalid", testPutInvalid},
		{"PutBatchLastWins", testPutBatchLastWins},
		{"GetBulk", testGetBulk},
		{"GetBulkLarge", testGetBulkLarge},
		{"UnionCreatesRow", testUnionCreatesRow},
		{"UnionIdempotent", testUnionIdempotent},
		{"UnionEmptyValues", testUnionEmptyValues},
		{"UnionInvalidColumn", testUnionInvalidColumn},
		{"UnionKeepsAttributes", testUnionKeepsAttributes},
		{"UnionConcurrent", testUnionConcurrent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

// ProviderFactory returns a fresh provider.
type ProviderFactory func(t *testing.T) kvstore.Provider

// RunProvider checks that tables of one provider are isolated.
func RunProvider(t *testing.T, newProvider ProviderFactory) {
	t.Helper()
	ctx := context.Background()
	p := newProvider(t)

	a, err := p.Table(ctx, "idx_vectors")
	require.NoError(t, err)
	b, err := p.Table(ctx, "idx_buckets")
	require.NoError(t, err)

	require.NoError(t, a.Put(ctx, kvstore.Record{ID: "x", Vector: []float32{1, 2}}))
	require.NoError(t, b.UnionColumn(ctx, "x", "ids", []string{"v1"}))

	ra, err := a.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, ra.Vector)
	assert.Empty(t, ra.Sets)

	rb, err := b.Get(ctx, "x")
	require.NoError(t, err)
	assert.Nil(t, rb.Vector)
	assert.Equal(t, []string{"v1"}, rb.Set("ids"))

	again, err := p.Table(ctx, "idx_vectors")
	require.NoError(t, err)
	r, err := again.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, ra, r)
}

func testGetMissing(t *testing.T, s kvstore.Store) {
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func testPutGet(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	in := kvstore.Record{
		ID:     "v1",
		Vector: []float32{0.5, -1.25, 3.0000002, 0},
		Metadata: map[string]any{
			"color": "red",
			"n":     float64(3),
			"tags":  []any{"a", "b"},
		},
		Data: []byte{0x00, 0xff, 0x10},
	}
	require.NoError(t, s.Put(ctx, in))

	got, err := s.Get(ctx, "v1")
	require.NoError(t, err)
	assert.Equal(t, in.ID, got.ID)
	assert.Equal(t, in.Vector, got.Vector)
	assert.Equal(t, in.Metadata, got.Metadata)
	assert.Equal(t, in.Data, got.Data)
	assert.Empty(t, got.Sets)
}

func testPutReplaces(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, kvstore.Record{
		ID:       "k",
		Vector:   []float32{1},
		Metadata: map[string]any{"a": "b"},
		Sets:     map[string][]string{"ids": {"z", "y", "y"}},
	}))
	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"y", "z"}, got.Set("ids"))

	require.NoError(t, s.Put(ctx, kvstore.Record{ID: "k", Vector: []float32{2, 3}}))
	got, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []float32{2, 3}, got.Vector)
	assert.Nil(t, got.Metadata)
	assert.Empty(t, got.Set("ids"))
}

func testPutInvalid(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	assert.ErrorIs(t, s.Put(ctx, kvstore.Record{}), kvstore.ErrInvalidID)
	assert.ErrorIs(t, s.Put(ctx, kvstore.Record{
		ID:   "k",
		Sets: map[string][]string{kvstore.AttrVector: {"a"}},
	}), kvstore.ErrInvalidColumn)
}

func testPutBatchLastWins(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutBatch(ctx, nil))
	require.NoError(t, s.PutBatch(ctx, []kvstore.Record{
		{ID: "a", Vector: []float32{1}},
		{ID: "b", Vector: []float32{2}},
		{ID: "a", Vector: []float32{3}},
	}))

	a, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, []float32{3}, a.Vector)

	b, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []float32{2}, b.Vector)
}

func testGetBulk(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.PutBatch(ctx, []kvstore.Record{
		{ID: "a", Vector: []float32{1}},
		{ID: "b", Vector: []float32{2}},
		{ID: "c", Vector: []float32{3}},
	}))

	got, err := s.GetBulk(ctx, []string{"c", "missing", "a", "c"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "a", got[1].ID)

	got, err = s.GetBulk(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.GetBulk(ctx, []string{"x", "y"})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func testGetBulkLarge(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	const n = 260
	recs := make([]kvstore.Record, n)
	ids := make([]string, 0, n+10)
	for i := range recs {
		recs[i] = kvstore.Record{ID: fmt.Sprintf("id-%03d", i), Vector: []float32{float32(i)}}
		ids = append(ids, recs[i].ID)
	}
	for i := 0; i < 10; i++ {
		ids = append(ids, fmt.Sprintf("gone-%d", i))
	}
	require.NoError(t, s.PutBatch(ctx, recs))

	got, err := s.GetBulk(ctx, ids)
	require.NoError(t, err)
	require.Len(t, got, n)
	for i, r := range got {
		assert.Equal(t, recs[i].ID, r.ID)
		assert.Equal(t, recs[i].Vector, r.Vector)
	}
}

func testUnionCreatesRow(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.UnionColumn(ctx, "0:ab", "ids", []string{"v2", "v1"}))

	got, err := s.Get(ctx, "0:ab")
	require.NoError(t, err)
	assert.Equal(t, "0:ab", got.ID)
	assert.Equal(t, []string{"v1", "v2"}, got.Set("ids"))
	assert.Nil(t, got.Vector)
}

func testUnionIdempotent(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.UnionColumn(ctx, "b", "ids", []string{"x"}))
	require.NoError(t, s.UnionColumn(ctx, "b", "ids", []string{"x"}))
	require.NoError(t, s.UnionColumn(ctx, "b", "ids", []string{"y", "x"}))
	require.NoError(t, s.UnionColumn(ctx, "b", "other", []string{"q"}))

	got, err := s.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, got.Set("ids"))
	assert.Equal(t, []string{"q"}, got.Set("other"))
}

func testUnionEmptyValues(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.UnionColumn(ctx, "b", "ids", nil))
	_, err := s.Get(ctx, "b")
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
}

func testUnionInvalidColumn(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	for _, col := range []string{"", kvstore.AttrID, kvstore.AttrVector, kvstore.AttrMetadata, kvstore.AttrData} {
		err := s.UnionColumn(ctx, "b", col, []string{"x"})
		assert.ErrorIs(t, err, kvstore.ErrInvalidColumn, "column %q", col)
	}
	assert.ErrorIs(t, s.UnionColumn(ctx, "", "ids", []string{"x"}), kvstore.ErrInvalidID)
}

func testUnionKeepsAttributes(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	require.NoError(t, s.Put(ctx, kvstore.Record{
		ID:       "k",
		Vector:   []float32{1, 2},
		Metadata: map[string]any{"x": "y"},
	}))
	require.NoError(t, s.UnionColumn(ctx, "k", "ids", []string{"a"}))

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, got.Vector)
	assert.Equal(t, map[string]any{"x": "y"}, got.Metadata)
	assert.Equal(t, []string{"a"}, got.Set("ids"))
}

func testUnionConcurrent(t *testing.T, s kvstore.Store) {
	ctx := context.Background()
	const (
		workers = 8
		each    = 20
	)

	var wg sync.WaitGroup
	errs := make(chan error, workers*each)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				errs <- s.UnionColumn(ctx, "hot", "ids", []string{fmt.Sprintf("w%d-%02d", w, i)})
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.Get(ctx, "hot")
	require.NoError(t, err)
	assert.Len(t, got.Set("ids"), workers*each)
}
