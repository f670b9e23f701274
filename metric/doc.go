// Package metric exports index operation metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc, err := metric.NewPrometheusCollector(reg, "lshvec")
//	idx, err := lshvec.NewIndex(cfg, vectors, buckets, lshvec.WithMetricsCollector(mc))
package metric
