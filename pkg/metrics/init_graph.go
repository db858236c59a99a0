package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGraphMetrics() {
	r.GraphNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_graph_nodes_total",
			Help: "Number of nodes in the published campus graph",
		},
	)

	r.GraphEdgesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_graph_edges_total",
			Help: "Number of edges in the published campus graph",
		},
	)

	r.GraphBuildingsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_graph_buildings_total",
			Help: "Number of buildings in the published campus graph",
		},
	)

	r.GraphVersion = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_graph_version",
			Help: "Version of the published campus graph",
		},
	)

	r.ConstraintsTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_constraints_total",
			Help: "Number of active traversal constraints",
		},
	)

	r.IngestionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_ingestions_total",
			Help: "Total number of graph ingestions",
		},
		[]string{"mode", "status"},
	)

	r.IngestionDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "navigator_ingestion_duration_seconds",
			Help:    "Graph ingestion duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		},
		[]string{"mode"},
	)

	r.TopologyViolations = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "navigator_topology_violations",
			Help: "Topology violations in the published graph by severity",
		},
		[]string{"severity"},
	)

	r.SnapshotBytes = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_snapshot_bytes",
			Help: "Size of the last saved snapshot in bytes",
		},
	)
}
