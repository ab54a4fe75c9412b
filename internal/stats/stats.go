// Package stats provides a unified interface for collecting engine metrics.
package stats

// Metric names used throughout the engine.
const (
	MetricReads         = "hotrank_reads_total"
	MetricReadFailures  = "hotrank_read_failures_total"
	MetricWrites        = "hotrank_writes_total"
	MetricWriteFailures = "hotrank_write_failures_total"

	MetricEvents        = "hotrank_events_total"
	MetricEventsDropped = "hotrank_events_dropped_total"

	MetricFallbackIncrements = "hotrank_fallback_increments_total"
	MetricFallbackPending    = "hotrank_fallback_pending"
	MetricReconcileFlushes   = "hotrank_reconcile_flushes_total"
	MetricReconcileFailures  = "hotrank_reconcile_failures_total"

	MetricSamplerDrainedKeys = "hotrank_sampler_drained_keys"
	MetricTTLRefreshes       = "hotrank_ttl_refreshes_total"
)

// Collector defines the interface for collecting metrics.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// SetGauge sets a gauge metric to value.
	SetGauge(name string, value int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}
