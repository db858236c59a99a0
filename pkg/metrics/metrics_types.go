package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the application
type Registry struct {
	// HTTP Metrics
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	HTTPResponseSizeBytes *prometheus.HistogramVec
	RateLimitedTotal      *prometheus.CounterVec

	// Graph Metrics
	GraphNodesTotal     prometheus.Gauge
	GraphEdgesTotal     prometheus.Gauge
	GraphBuildingsTotal prometheus.Gauge
	GraphVersion        prometheus.Gauge
	ConstraintsTotal    prometheus.Gauge
	IngestionsTotal     *prometheus.CounterVec
	IngestionDuration   *prometheus.HistogramVec
	TopologyViolations  *prometheus.GaugeVec
	SnapshotBytes       prometheus.Gauge

	// Route Query Metrics
	QueriesTotal       *prometheus.CounterVec
	QueryDuration      *prometheus.HistogramVec
	QueryNodesExpanded *prometheus.HistogramVec
	QueryQueueWait     prometheus.Histogram
	SlowQueries        *prometheus.CounterVec

	// Replication Metrics
	ReplicationMessagesTotal   *prometheus.CounterVec
	ReplicationThroughputBytes *prometheus.CounterVec
	ReplicationAppliedVersion  prometheus.Gauge

	// Security Metrics
	AuthFailuresTotal               *prometheus.CounterVec
	SecurityUnauthorizedAccessTotal prometheus.Counter

	// System Metrics; Go runtime and process metrics come from collectors.
	UptimeSeconds prometheus.Gauge

	registry *prometheus.Registry
	mu       sync.RWMutex
}

var (
	// Global registry instance
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the global metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with all metrics initialized
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
	}

	// Initialize all metrics
	r.initHTTPMetrics()
	r.initGraphMetrics()
	r.initQueryMetrics()
	r.initReplicationMetrics()
	r.initSystemMetrics()

	return r
}

// GetPrometheusRegistry returns the underlying Prometheus registry
func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}
