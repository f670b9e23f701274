package lshvec

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/lshvec/kvstore"
)

func TestMetricsCollector(t *testing.T) {
	ctx := context.Background()
	mc := &BasicMetricsCollector{}
	idx, _, _ := newTestIndex(t, testParams(4), WithMetricsCollector(mc))

	require.NoError(t, idx.Insert(ctx, Vector{ID: "a", Values: []float32{1, 0, 0, 0}}))
	require.Error(t, idx.Insert(ctx, Vector{ID: "b", Values: []float32{1}}))
	require.NoError(t, idx.InsertBatch(ctx, []Vector{
		{ID: "c", Values: []float32{0, 1, 0, 0}},
		{ID: "d", Values: []float32{0, 0, 1, 0}},
	}))
	require.Error(t, idx.InsertBatch(ctx, []Vector{{ID: "e"}}))
	_, err := idx.Search(ctx, []float32{1, 0, 0, 0}, 2)
	require.NoError(t, err)
	_, err = idx.Search(ctx, []float32{1, 0, 0, 0}, 0)
	require.Error(t, err)

	stats := mc.GetStats()
	assert.Equal(t, OpStats{Calls: 2, Errors: 1}, zeroLatency(stats.Insert))
	assert.Equal(t, OpStats{Calls: 2, Errors: 1}, zeroLatency(stats.BatchInsert))
	assert.Equal(t, OpStats{Calls: 2, Errors: 1}, zeroLatency(stats.Search))
	assert.Equal(t, int64(2), stats.BatchVectors)
	assert.Positive(t, stats.BatchBuckets)
	// The successful search saw at least the identical vector "a".
	assert.GreaterOrEqual(t, stats.AvgCandidates, 0.5)
}

func zeroLatency(s OpStats) OpStats {
	s.AvgLatency = 0
	return s
}

func TestNilObservers(t *testing.T) {
	idx, _, _ := newTestIndex(t, testParams(4), WithMetricsCollector(nil), WithLogger(nil))
	require.NoError(t, idx.Insert(context.Background(), Vector{ID: "a", Values: []float32{1, 0, 0, 0}}))
}

func TestLogger(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := NewLogger(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	idx, vectors, _ := newTestIndex(t, testParams(4), WithLogger(logger))

	require.NoError(t, idx.Insert(ctx, Vector{ID: "a", Values: []float32{1, 0, 0, 0}}))
	assert.Contains(t, buf.String(), `"msg":"insert completed"`)
	assert.Contains(t, buf.String(), `"index":"test"`)

	require.NoError(t, vectors.Put(ctx, kvstore.Record{ID: "z", Vector: []float32{0, 0, 0, 0}}))
	keys, err := idx.Config().BucketKeys([]float32{1, 0, 0, 0})
	require.NoError(t, err)
	require.NoError(t, idx.buckets.UnionColumn(ctx, keys[0], BucketColumn, []string{"z"}))

	buf.Reset()
	_, err = idx.Search(ctx, []float32{1, 0, 0, 0}, 3)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"skipping candidate"`)
	assert.Contains(t, buf.String(), `"reason":"zero norm"`)
	assert.Contains(t, buf.String(), `"msg":"search completed"`)

	buf.Reset()
	_, err = idx.Search(ctx, []float32{1}, 3)
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestNoopLogger(t *testing.T) {
	l := NoopLogger()
	assert.False(t, l.Enabled(context.Background(), slog.LevelError))
}
