// Package metrics provides Prometheus metrics for the bulk scan daemon.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns all Prometheus collectors for the scan engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scan outcome counters
	scansConfirmed prometheus.Counter
	scansDuplicate prometheus.Counter
	scansRejected  prometheus.Counter
	scansInvalid   prometheus.Counter

	// Submission pipeline
	submissionAttempts prometheus.Counter
	versionConflicts   prometheus.Counter
	submissionLatency  prometheus.Histogram

	// Capture loop
	framesProcessed prometheus.Counter
	framesSkipped   prometheus.Counter
	decodeErrors    prometheus.Counter

	// Session lifecycle
	activeSessions    prometheus.Gauge
	sessionsCompleted prometheus.Counter
	sessionsCancelled prometheus.Counter

	// Offline sync queue
	syncQueueDepth   prometheus.Gauge
	syncQueueFlushed prometheus.Counter

	// HTTP surface
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid the default Go collectors.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // singleton registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "bulkscan",
		subsystem:        "session",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scansConfirmed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scans_confirmed_total",
		Help:      "Total number of scans confirmed by the inventory backend",
	})

	m.scansDuplicate = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scans_duplicate_total",
		Help:      "Total number of duplicate scans caught by the ledger",
	})

	m.scansRejected = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scans_rejected_total",
		Help:      "Total number of scans rejected after submission failure",
	})

	m.scansInvalid = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scans_invalid_total",
		Help:      "Total number of decoded payloads that failed validation",
	})

	m.submissionAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_attempts_total",
		Help:      "Total number of submission attempts, including retries",
	})

	m.versionConflicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "version_conflicts_total",
		Help:      "Total number of optimistic-concurrency version conflicts",
	})

	m.submissionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submission_latency_milliseconds",
		Help:      "End-to-end submission latency in milliseconds, retries included",
		Buckets:   m.histogramBuckets,
	})

	m.framesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_processed_total",
		Help:      "Total number of frames handed to the decoder",
	})

	m.framesSkipped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_skipped_total",
		Help:      "Total number of frames skipped by the FPS gate or warmup window",
	})

	m.decodeErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "decode_errors_total",
		Help:      "Total number of decoder panics recovered on corrupted frames",
	})

	m.activeSessions = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active_sessions",
		Help:      "Current number of active scan sessions",
	})

	m.sessionsCompleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_completed_total",
		Help:      "Total number of sessions that reached the completed state",
	})

	m.sessionsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sessions_cancelled_total",
		Help:      "Total number of sessions that were cancelled",
	})

	m.syncQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_queue_depth",
		Help:      "Current number of scans parked in the offline sync queue",
	})

	m.syncQueueFlushed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_queue_flushed_total",
		Help:      "Total number of queued scans successfully flushed to the backend",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint, method and status",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers recording against the global manager.

func RecordScanConfirmed() { globalManager.scansConfirmed.Inc() }
func RecordScanDuplicate() { globalManager.scansDuplicate.Inc() }
func RecordScanRejected() { globalManager.scansRejected.Inc() }
func RecordScanInvalid() { globalManager.scansInvalid.Inc() }
func RecordVersionConflict() { globalManager.versionConflicts.Inc() }

func RecordSubmissionAttempt() { globalManager.submissionAttempts.Inc() }

func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

func RecordFrameProcessed() { globalManager.framesProcessed.Inc() }
func RecordFrameSkipped() { globalManager.framesSkipped.Inc() }
func RecordDecodeError() { globalManager.decodeErrors.Inc() }

func UpdateActiveSessions(n int) { globalManager.activeSessions.Set(float64(n)) }
func RecordSessionCompleted() { globalManager.sessionsCompleted.Inc() }
func RecordSessionCancelled() { globalManager.sessionsCancelled.Inc() }

func UpdateSyncQueueDepth(n int) { globalManager.syncQueueDepth.Set(float64(n)) }
func RecordSyncQueueFlush() { globalManager.syncQueueFlushed.Inc() }

func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the registry serving /metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
