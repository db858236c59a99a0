package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initQueryMetrics() {
	r.QueriesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_route_queries_total",
			Help: "Total number of route queries",
		},
		[]string{"query_type", "status"},
	)

	r.QueryDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigator_route_query_duration_seconds",
			Help:    "Route query duration in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"query_type"},
	)

	r.QueryNodesExpanded = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigator_route_query_nodes_expanded",
			Help:    "Number of nodes expanded per route query",
			Buckets: []float64{10, 100, 1000, 10000, 100000},
		},
		[]string{"query_type"},
	)

	r.QueryQueueWait = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "navigator_route_query_queue_wait_seconds",
			Help:    "Time route queries spent waiting for a worker",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		},
	)

	r.SlowQueries = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_slow_route_queries_total",
			Help: "Total number of slow route queries (>1s)",
		},
		[]string{"query_type"},
	)
}
