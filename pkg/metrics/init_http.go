package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "navigator"

// initHTTPMetrics registers request, auth and rate limit metrics for the
// API edge.
func (r *Registry) initHTTPMetrics() {
	f := promauto.With(r.registry)
	route := []string{"method", "path", "status"}

	r.HTTPRequestsTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_total",
		Help: "HTTP requests by route pattern and status",
	}, route)

	r.HTTPRequestDuration = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	}, route)

	r.HTTPRequestsInFlight = f.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace, Subsystem: "http", Name: "requests_in_flight",
		Help: "HTTP requests being served",
	})

	r.HTTPResponseSizeBytes = f.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Subsystem: "http", Name: "response_size_bytes",
		Help:    "HTTP response body size by route pattern",
		Buckets: prometheus.ExponentialBuckets(128, 4, 7),
	}, []string{"method", "path"})

	r.RateLimitedTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "http", Name: "rate_limited_total",
		Help: "Requests refused by the rate limiter, by client key kind",
	}, []string{"client"}) // user, ip

	r.AuthFailuresTotal = f.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "auth", Name: "failures_total",
		Help: "Rejected credentials by method",
	}, []string{"method"}) // jwt, apikey

	r.SecurityUnauthorizedAccessTotal = f.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Subsystem: "security", Name: "unauthorized_access_total",
		Help: "Admin requests refused for insufficient privileges",
	})
}
