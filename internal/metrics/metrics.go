// Package metrics provides Prometheus metrics for the audit archiver.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the archiver.
type Metrics struct {
	// Record metrics
	RecordsProcessed *prometheus.CounterVec
	RecordsFailed    *prometheus.CounterVec

	// Group metrics
	GroupsProcessed *prometheus.CounterVec
	GroupsFailed    *prometheus.CounterVec

	// Batch metrics
	BatchesProcessed *prometheus.CounterVec
	BatchSize        *prometheus.HistogramVec

	// Timing metrics
	WriteDuration  *prometheus.HistogramVec
	DeleteDuration *prometheus.HistogramVec

	// Size metrics
	ObjectBytes *prometheus.HistogramVec

	// Error metrics
	StorageErrors *prometheus.CounterVec
	QueueErrors   *prometheus.CounterVec
	RetryAttempts *prometheus.CounterVec
}

// Config holds metrics configuration.
type Config struct {
	Enabled bool
	Address string // Address for metrics HTTP server (e.g., ":9090")
}

var defaultMetrics *Metrics

// Init initializes the metrics package with global metrics.
// Call this once at startup.
func Init(namespace string) *Metrics {
	if namespace == "" {
		namespace = "audit_archiver"
	}

	labels := []string{"stage"}

	m := &Metrics{
		RecordsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_processed_total",
				Help:      "Total number of records successfully archived",
			},
			labels,
		),
		RecordsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_failed_total",
				Help:      "Total number of records that failed processing",
			},
			[]string{"stage", "reason"},
		),
		GroupsProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "groups_processed_total",
				Help:      "Total number of partition groups written",
			},
			labels,
		),
		GroupsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "groups_failed_total",
				Help:      "Total number of partition groups that failed to write",
			},
			labels,
		),
		BatchesProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "batches_processed_total",
				Help:      "Total number of delivered batches processed",
			},
			labels,
		),
		BatchSize: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "batch_size",
				Help:      "Number of messages per delivered batch",
				Buckets:   prometheus.LinearBuckets(1, 1, 10),
			},
			labels,
		),
		WriteDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "write_duration_seconds",
				Help:      "Time to write one partition group to storage",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			labels,
		),
		DeleteDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "delete_duration_seconds",
				Help:      "Time to delete one queue message",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			labels,
		),
		ObjectBytes: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "object_bytes",
				Help:      "Size of written NDJSON objects in bytes",
				Buckets:   prometheus.ExponentialBuckets(256, 2, 14), // 256B to ~4MB
			},
			labels,
		),
		StorageErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_errors_total",
				Help:      "Total number of storage write errors",
			},
			[]string{"stage", "backend"},
		),
		QueueErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_errors_total",
				Help:      "Total number of queue delete errors",
			},
			labels,
		),
		RetryAttempts: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "retry_attempts_total",
				Help:      "Total number of retry attempts",
			},
			[]string{"stage", "operation"},
		),
	}

	defaultMetrics = m
	return m
}

// Get returns the global metrics instance.
// Returns nil if Init has not been called.
func Get() *Metrics {
	return defaultMetrics
}

// StartServer starts an HTTP server for Prometheus metrics scraping.
// Blocks until the server exits.
func StartServer(address string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return http.ListenAndServe(address, mux)
}

// IncRecordsProcessed increments the successful record counter.
func (m *Metrics) IncRecordsProcessed(stage string) {
	m.RecordsProcessed.WithLabelValues(stage).Inc()
}

// IncRecordsFailed increments the failed record counter for a reason.
func (m *Metrics) IncRecordsFailed(stage, reason string) {
	m.RecordsFailed.WithLabelValues(stage, reason).Inc()
}

// IncGroupsProcessed increments the written group counter.
func (m *Metrics) IncGroupsProcessed(stage string) {
	m.GroupsProcessed.WithLabelValues(stage).Inc()
}

// IncGroupsFailed increments the failed group counter.
func (m *Metrics) IncGroupsFailed(stage string) {
	m.GroupsFailed.WithLabelValues(stage).Inc()
}

// ObserveBatch records a processed batch and its size.
func (m *Metrics) ObserveBatch(stage string, size int) {
	m.BatchesProcessed.WithLabelValues(stage).Inc()
	m.BatchSize.WithLabelValues(stage).Observe(float64(size))
}

// ObserveWriteDuration records the time spent writing one group.
func (m *Metrics) ObserveWriteDuration(stage string, seconds float64) {
	m.WriteDuration.WithLabelValues(stage).Observe(seconds)
}

// ObserveDeleteDuration records the time spent deleting one message.
func (m *Metrics) ObserveDeleteDuration(stage string, seconds float64) {
	m.DeleteDuration.WithLabelValues(stage).Observe(seconds)
}

// ObserveObjectBytes records the size of one written object.
func (m *Metrics) ObserveObjectBytes(stage string, bytes float64) {
	m.ObjectBytes.WithLabelValues(stage).Observe(bytes)
}

// IncStorageErrors increments the storage error counter.
func (m *Metrics) IncStorageErrors(stage, backend string) {
	m.StorageErrors.WithLabelValues(stage, backend).Inc()
}

// IncQueueErrors increments the queue error counter.
func (m *Metrics) IncQueueErrors(stage string) {
	m.QueueErrors.WithLabelValues(stage).Inc()
}

// IncRetryAttempts increments the retry counter for an operation.
func (m *Metrics) IncRetryAttempts(stage, operation string) {
	m.RetryAttempts.WithLabelValues(stage, operation).Inc()
}
