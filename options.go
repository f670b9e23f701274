package lshvec

import (
	"log/slog"

	"github.com/hupe1980/lshvec/lsh"
)

const (
	// DefaultConcurrency bounds the parallel bucket unions of InsertBatch.
	DefaultConcurrency = 8

	// DefaultIndexCacheSize is the number of index handles a DB keeps.
	DefaultIndexCacheSize = 128
)

type options struct {
	metricsCollector       MetricsCollector
	logger                 *Logger
	concurrency            int
	maxCandidatesPerBucket int
	indexCacheSize         int
	generateOptions        []lsh.GenerateOption
}

// Option configures an Index or a DB. Options given to Open apply to every
// index the DB creates or opens.
type Option func(*options)

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &lshvec.BasicMetricsCollector{}
//	idx, _ := lshvec.NewIndex(cfg, vectors, buckets, lshvec.WithMetricsCollector(metrics))
//	// ... use idx ...
//	stats := metrics.GetStats()
//	fmt.Printf("searches: %d, avg candidates: %.1f\n", stats.Search.Calls, stats.AvgCandidates)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := lshvec.NewJSONLogger(slog.LevelInfo)
//	db, _ := lshvec.Open(tables, configs, lshvec.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithConcurrency bounds the bucket unions InsertBatch issues in parallel.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxCandidatesPerBucket caps the ids a search takes from each bucket.
// The lowest ids are kept so the cap is deterministic. 0 means unlimited.
func WithMaxCandidatesPerBucket(n int) Option {
	return func(o *options) {
		o.maxCandidatesPerBucket = max(n, 0)
	}
}

// WithIndexCacheSize sets how many index handles a DB caches.
func WithIndexCacheSize(n int) Option {
	return func(o *options) {
		o.indexCacheSize = n
	}
}

// WithGenerateOptions passes options to lsh.Generate when a DB creates an
// index, e.g. lsh.WithSeed for reproducible planes.
func WithGenerateOptions(opts ...lsh.GenerateOption) Option {
	return func(o *options) {
		o.generateOptions = append(o.generateOptions, opts...)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		concurrency:      DefaultConcurrency,
		indexCacheSize:   DefaultIndexCacheSize,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
