package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BackendRequestLatency records backend API request latency by method and resource.
	BackendRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "glasswing_backend_request_latency_seconds",
		Help:    "Backend API request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "resource"})

	// BackendErrors counts backend API errors by resource and status code.
	BackendErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glasswing_backend_errors_total",
		Help: "Total number of backend API errors by resource and status",
	}, []string{"resource", "status"})

	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glasswing_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// UploadsTotal counts storage uploads by bucket and outcome.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glasswing_uploads_total",
		Help: "Total number of storage uploads by bucket and outcome",
	}, []string{"bucket", "outcome"})

	// OptimisticRollbacks counts optimistic interaction flips rolled back
	// after a rejected mutation.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "glasswing_optimistic_rollbacks_total",
		Help: "Total number of optimistic like/follow flips rolled back",
	}, []string{"kind"})
)

// BackendMetrics records request latency for backend API calls.
type BackendMetrics struct{}

// NewBackendMetrics returns a new BackendMetrics instance.
func NewBackendMetrics() *BackendMetrics {
	return &BackendMetrics{}
}

// ObserveRequest records the latency of a backend request.
func (m *BackendMetrics) ObserveRequest(method, resource string, start time.Time) {
	BackendRequestLatency.WithLabelValues(method, resource).Observe(time.Since(start).Seconds())
}

// TrackRequest returns a function that records request latency when called (e.g. defer).
func (m *BackendMetrics) TrackRequest(method, resource string) func() {
	start := time.Now()
	return func() {
		m.ObserveRequest(method, resource, start)
	}
}

// RecordError increments the backend error counter.
func (m *BackendMetrics) RecordError(resource, status string) {
	BackendErrors.WithLabelValues(resource, status).Inc()
}
