package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initReplicationMetrics() {
	r.ReplicationMessagesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_replication_messages_total",
			Help: "Total number of replication messages",
		},
		[]string{"direction", "status"}, // sent/received, ok/rejected/error
	)

	r.ReplicationThroughputBytes = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "navigator_replication_throughput_bytes_total",
			Help: "Replication throughput in bytes",
		},
		[]string{"direction"}, // sent, received
	)

	r.ReplicationAppliedVersion = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "navigator_replication_applied_version",
			Help: "Primary graph version last applied by this replica",
		},
	)
}
