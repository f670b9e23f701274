package lshvec

import (
	"sync/atomic"
	"time"
)

// MetricsCollector receives one call per completed index operation.
// metric.PrometheusCollector exports them to Prometheus.
type MetricsCollector interface {
	// RecordInsert is called after each Insert.
	RecordInsert(duration time.Duration, err error)

	// RecordBatchInsert is called after each non-empty InsertBatch with the
	// number of vectors and the number of distinct buckets they hashed to.
	RecordBatchInsert(count, buckets int, duration time.Duration, err error)

	// RecordSearch is called after each Search with the requested k and the
	// size of the candidate set that was re-ranked.
	RecordSearch(k, candidates int, duration time.Duration, err error)
}

// NoopMetricsCollector discards everything.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordBatchInsert(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(int, int, time.Duration, error)      {}

type opCounter struct {
	calls  atomic.Int64
	errors atomic.Int64
	nanos  atomic.Int64
}

func (c *opCounter) record(d time.Duration, err error) {
	c.calls.Add(1)
	c.nanos.Add(d.Nanoseconds())
	if err != nil {
		c.errors.Add(1)
	}
}

func (c *opCounter) snapshot() OpStats {
	s := OpStats{Calls: c.calls.Load(), Errors: c.errors.Load()}
	if s.Calls > 0 {
		s.AvgLatency = time.Duration(c.nanos.Load() / s.Calls)
	}
	return s
}

// BasicMetricsCollector keeps in-process counters. The zero value is ready
// to use.
type BasicMetricsCollector struct {
	insert     opCounter
	batch      opCounter
	search     opCounter
	vectors    atomic.Int64
	buckets    atomic.Int64
	candidates atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(d time.Duration, err error) {
	b.insert.record(d, err)
}

// RecordBatchInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordBatchInsert(count, buckets int, d time.Duration, err error) {
	b.batch.record(d, err)
	if err == nil {
		b.vectors.Add(int64(count))
		b.buckets.Add(int64(buckets))
	}
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_, candidates int, d time.Duration, err error) {
	b.search.record(d, err)
	b.candidates.Add(int64(candidates))
}

// OpStats summarizes one operation type.
type OpStats struct {
	Calls      int64
	Errors     int64
	AvgLatency time.Duration
}

// BasicMetricsStats is a snapshot of a BasicMetricsCollector.
type BasicMetricsStats struct {
	Insert      OpStats
	BatchInsert OpStats
	Search      OpStats

	// BatchVectors and BatchBuckets count vectors and bucket unions of
	// successful batches.
	BatchVectors int64
	BatchBuckets int64

	// AvgCandidates is the mean candidate set size per search.
	AvgCandidates float64
}

// GetStats returns a snapshot of the counters.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		Insert:       b.insert.snapshot(),
		BatchInsert:  b.batch.snapshot(),
		Search:       b.search.snapshot(),
		BatchVectors: b.vectors.Load(),
		BatchBuckets: b.buckets.Load(),
	}
	if s.Search.Calls > 0 {
		s.AvgCandidates = float64(b.candidates.Load()) / float64(s.Search.Calls)
	}
	return s
}
