package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by method, path and envelope code (count)",
		},
		[]string{"method", "path", "code"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		},
		[]string{"method", "path"},
	)

	RateLimitRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_requests_total",
			Help: "Total number of requests seen by the rate limiter (count)",
		},
		[]string{"status"},
	)

	DatabaseReconnectsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "database_reconnects_total",
			Help: "Total number of scheduled database reconnection attempts (count)",
		},
	)

	AuthTokensIssuedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Total number of bearer tokens issued (count)",
		},
	)

	AuthFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_failures_total",
			Help: "Total number of rejected authentication attempts (count)",
		},
		[]string{"reason"},
	)

	InternalErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "internal_errors_total",
			Help: "Total number of requests normalized to an internal failure (count)",
		},
	)
)

var registerOnce sync.Once

// Register installs all collectors on the default registry. Safe to call more
// than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			RateLimitRequestsTotal,
			DatabaseReconnectsTotal,
			AuthTokensIssuedTotal,
			AuthFailuresTotal,
			InternalErrorsTotal,
		)
	})
}
