package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// PrometheusCollector records insert, batch insert and search metrics.
type PrometheusCollector struct {
	opLatency    *prometheus.HistogramVec
	ops          *prometheus.CounterVec
	batchItems   *prometheus.CounterVec
	bucketWrites prometheus.Counter
	searchK      prometheus.Histogram
	candidates   prometheus.Histogram
}

// NewPrometheusCollector creates the collectors and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer, namespace string) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &PrometheusCollector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of index operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Index operations by type and outcome.",
		}, []string{"op", "status"}),
		batchItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_insert_items_total",
			Help:      "Vectors submitted through batch inserts.",
		}, []string{"status"}),
		bucketWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_bucket_unions_total",
			Help:      "Bucket set unions issued by successful batch inserts.",
		}),
		searchK: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_k",
			Help:      "Requested result count per search.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		candidates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_candidates",
			Help:      "Candidate set size re-ranked per search.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}

	for _, col := range []prometheus.Collector{c.opLatency, c.ops, c.batchItems, c.bucketWrites, c.searchK, c.candidates} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNewPrometheusCollector is like NewPrometheusCollector but panics on
// registration errors.
func MustNewPrometheusCollector(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	c, err := NewPrometheusCollector(reg, namespace)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *PrometheusCollector) observe(op, status string, d time.Duration) {
	c.opLatency.WithLabelValues(op, status).Observe(d.Seconds())
	c.ops.WithLabelValues(op, status).Inc()
}

func statusOf(err error) string {
	if err != nil {
		return statusError
	}
	return statusSuccess
}

// RecordInsert records a single insert.
func (c *PrometheusCollector) RecordInsert(d time.Duration, err error) {
	c.observe("insert", statusOf(err), d)
}

// RecordBatchInsert records a batch of count vectors hashed into buckets
// distinct buckets. A failed batch counts all of its vectors as failed.
func (c *PrometheusCollector) RecordBatchInsert(count, buckets int, d time.Duration, err error) {
	status := statusOf(err)
	c.observe("batch_insert", status, d)
	c.batchItems.WithLabelValues(status).Add(float64(count))
	if err == nil {
		c.bucketWrites.Add(float64(buckets))
	}
}

// RecordSearch records a search for k results over candidates candidates.
func (c *PrometheusCollector) RecordSearch(k, candidates int, d time.Duration, err error) {
	status := statusOf(err)
	c.observe("search", status, d)
	c.searchK.Observe(float64(k))
	if err == nil {
		c.candidates.Observe(float64(candidates))
	}
}
