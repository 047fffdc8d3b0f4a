// Package metrics provides Prometheus instrumentation for the tracker.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ProviderRequests counts upstream calls by operation and outcome.
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oitracker_provider_requests_total",
		Help: "Upstream provider requests",
	}, []string{"op", "result"})

	// ProviderLatency tracks upstream call latency by operation.
	ProviderLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oitracker_provider_latency_seconds",
		Help:    "Upstream provider request latency in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"op"})

	// BreakerState reports each circuit breaker's state (0 closed, 1 half-open, 2 open).
	BreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oitracker_breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	// BackfillIntervals counts backfill intervals by outcome (saved, skipped).
	BackfillIntervals = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oitracker_backfill_intervals_total",
		Help: "Backfill intervals processed",
	}, []string{"symbol", "result"})

	// BackfillRuns counts backfill runs by final state.
	BackfillRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oitracker_backfill_runs_total",
		Help: "Backfill runs by final state",
	}, []string{"symbol", "state"})

	// PersistenceFailures counts history load/save failures.
	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oitracker_persistence_failures_total",
		Help: "Snapshot history persistence failures",
	}, []string{"op"})

	// HistorySize tracks the number of stored snapshot summaries.
	HistorySize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oitracker_history_size",
		Help: "Snapshot summaries currently stored",
	})

	// LastPCR tracks the most recent PCR(OI) per index.
	LastPCR = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "oitracker_pcr",
		Help: "Most recent open-interest put-call ratio",
	}, []string{"symbol"})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "oitracker_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oitracker_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// ObserveProvider records the outcome of one upstream call.
func ObserveProvider(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderRequests.WithLabelValues(op, result).Inc()
	ProviderLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
// pathLabel maps a request to a low-cardinality route label.
func Middleware(pathLabel func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			path := pathLabel(r)
			HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
			HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush forwards to the underlying writer so streamed responses keep working.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
