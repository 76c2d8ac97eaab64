package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Policy metrics
	PolicyDecisionsTotal   *prometheus.CounterVec
	CapabilityBatchSize    prometheus.Histogram
	CapabilityEvalDuration prometheus.Histogram

	// Session metrics
	SessionsRevokedTotal prometheus.Counter
	SessionsSweptTotal   prometheus.Counter

	// Rate limiting
	RateLimitRejectionsTotal *prometheus.CounterVec

	// Database pool
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steward_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "steward_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		PolicyDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steward_policy_decisions_total",
				Help: "Policy decisions on privileged actions by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		CapabilityBatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "steward_capability_batch_size",
				Help:    "Number of targets per batch capability request",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
		),
		CapabilityEvalDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "steward_capability_eval_duration_seconds",
				Help:    "Capability evaluation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SessionsRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "steward_sessions_revoked_total",
				Help: "Sessions revoked through administrative action",
			},
		),
		SessionsSweptTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "steward_sessions_swept_total",
				Help: "Expired sessions removed by the sweeper",
			},
		),
		RateLimitRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "steward_rate_limit_rejections_total",
				Help: "Requests rejected by the rate limiter",
			},
			[]string{"scope"},
		),
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "steward_db_connections_active",
				Help: "Open database connections in use",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "steward_db_connections_idle",
				Help: "Idle database connections in the pool",
			},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.PolicyDecisionsTotal,
		m.CapabilityBatchSize,
		m.CapabilityEvalDuration,
		m.SessionsRevokedTotal,
		m.SessionsSweptTotal,
		m.RateLimitRejectionsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// RecordDecision counts one policy decision outcome.
func (m *Metrics) RecordDecision(action string, err error) {
	outcome := "allowed"
	if err != nil {
		outcome = "denied"
	}
	m.PolicyDecisionsTotal.WithLabelValues(action, outcome).Inc()
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			metrics.HTTPRequestsTotal.
				WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)).Inc()
			metrics.HTTPRequestDuration.
				WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
		})
	}
}

// MetricsHandler returns the Prometheus scrape handler for the registry.
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
