package integration_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec"
	"github.com/hupe1980/lshvec/kvstore"
	"github.com/hupe1980/lshvec/lsh"
)

func TestEdgeCases_Vectors(t *testing.T) {
	ctx := context.Background()
	tables := kvstore.NewMemoryProvider()
	idx, err := openDB(t, tables).CreateIndex(ctx, "edge", lsh.Params{
		NFeatures: 128, NPlanes: 2, BitStart: 8, BitScaleFactor: 8,
	})
	require.NoError(t, err)

	vec := func(mod func([]float32)) []float32 {
		v := make([]float32, 128)
		v[0] = 1
		if mod != nil {
			mod(v)
		}
		return v
	}

	t.Run("Insert NaN", func(t *testing.T) {
		err := idx.Insert(ctx, lshvec.Vector{ID: "nan", Values: vec(func(v []float32) { v[1] = float32(math.NaN()) })})
		assert.ErrorIs(t, err, lshvec.ErrNumeric)
	})

	t.Run("Insert Inf", func(t *testing.T) {
		err := idx.Insert(ctx, lshvec.Vector{ID: "inf", Values: vec(func(v []float32) { v[1] = float32(math.Inf(-1)) })})
		assert.ErrorIs(t, err, lshvec.ErrNumeric)
	})

	t.Run("Insert Zero Length", func(t *testing.T) {
		err := idx.Insert(ctx, lshvec.Vector{ID: "empty", Values: []float32{}})
		assert.ErrorIs(t, err, lshvec.ErrConfiguration)
		assert.Contains(t, err.Error(), "dimension")
	})

	t.Run("Insert Zero Vector", func(t *testing.T) {
		err := idx.Insert(ctx, lshvec.Vector{ID: "zero", Values: make([]float32, 128)})
		assert.ErrorIs(t, err, lshvec.ErrNumeric)
		_, err = idx.GetItem(ctx, "zero")
		assert.ErrorIs(t, err, lshvec.ErrNotFound)
	})

	t.Run("Search NaN", func(t *testing.T) {
		_, err := idx.Search(ctx, vec(func(v []float32) { v[0] = float32(math.NaN()) }), 10)
		assert.ErrorIs(t, err, lshvec.ErrNumeric)
	})

	t.Run("Search Zero Query", func(t *testing.T) {
		_, err := idx.Search(ctx, make([]float32, 128), 10)
		assert.ErrorIs(t, err, lshvec.ErrNumeric)
	})

	t.Run("Search Wrong Dimension", func(t *testing.T) {
		_, err := idx.Search(ctx, make([]float32, 127), 10)
		assert.ErrorIs(t, err, lshvec.ErrConfiguration)
		assert.Contains(t, err.Error(), "dimension")
	})

	t.Run("K Larger Than Index", func(t *testing.T) {
		require.NoError(t, idx.Insert(ctx, lshvec.Vector{ID: "one", Values: vec(nil)}))
		results, err := idx.Search(ctx, vec(nil), 1000)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "one", results[0].ID)
	})
}

func TestEdgeCases_IndexIDs(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, kvstore.NewMemoryProvider())

	_, err := db.GetIndex(ctx, "missing")
	assert.ErrorIs(t, err, lshvec.ErrNotFound)

	_, err = db.CreateIndex(ctx, "../escape", lsh.Params{NFeatures: 2, NPlanes: 1, BitStart: 1})
	assert.ErrorIs(t, err, lshvec.ErrConfiguration)

	_, err = db.CreateIndex(ctx, "too-wide", lsh.Params{NFeatures: 2, NPlanes: 1, BitStart: lsh.MaxBits + 1})
	assert.ErrorIs(t, err, lshvec.ErrConfiguration)
}
