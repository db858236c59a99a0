package metrics

import (
	"time"
)

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// RecordQuery records a route query. expanded is the number of nodes the search expanded.
func (r *Registry) RecordQuery(queryType, status string, duration time.Duration, expanded int) {
	r.QueriesTotal.WithLabelValues(queryType, status).Inc()
	r.QueryDuration.WithLabelValues(queryType).Observe(duration.Seconds())
	r.QueryNodesExpanded.WithLabelValues(queryType).Observe(float64(expanded))

	if duration > time.Second {
		r.SlowQueries.WithLabelValues(queryType).Inc()
	}
}

// RecordQueueWait records how long a query waited for a worker
func (r *Registry) RecordQueueWait(wait time.Duration) {
	r.QueryQueueWait.Observe(wait.Seconds())
}

// RecordIngestion records a graph ingestion
func (r *Registry) RecordIngestion(mode, status string, duration time.Duration) {
	r.IngestionsTotal.WithLabelValues(mode, status).Inc()
	r.IngestionDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// UpdateGraphMetrics sets the gauges describing the published graph
func (r *Registry) UpdateGraphMetrics(nodes, edges, buildings, constraints int, version uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.GraphNodesTotal.Set(float64(nodes))
	r.GraphEdgesTotal.Set(float64(edges))
	r.GraphBuildingsTotal.Set(float64(buildings))
	r.ConstraintsTotal.Set(float64(constraints))
	r.GraphVersion.Set(float64(version))
}

// SetTopologyViolations sets the violation gauge for each severity
func (r *Registry) SetTopologyViolations(bySeverity map[string]int) {
	r.TopologyViolations.Reset()
	for severity, n := range bySeverity {
		r.TopologyViolations.WithLabelValues(severity).Set(float64(n))
	}
}

// SetSnapshotBytes records the size of the last saved snapshot
func (r *Registry) SetSnapshotBytes(n int) {
	r.SnapshotBytes.Set(float64(n))
}

// RecordReplicationMessage records a replication message sent or received
func (r *Registry) RecordReplicationMessage(direction, status string, bytes int) {
	r.ReplicationMessagesTotal.WithLabelValues(direction, status).Inc()
	r.ReplicationThroughputBytes.WithLabelValues(direction).Add(float64(bytes))
}

// SetReplicationAppliedVersion records the primary version a replica last applied
func (r *Registry) SetReplicationAppliedVersion(version uint64) {
	r.ReplicationAppliedVersion.Set(float64(version))
}

// RecordAuthFailure records a failed authentication attempt
func (r *Registry) RecordAuthFailure(method string) {
	r.AuthFailuresTotal.WithLabelValues(method).Inc()
}

// RecordRateLimited counts a request refused by the rate limiter. client is
// the kind of key the bucket was chosen by.
func (r *Registry) RecordRateLimited(client string) {
	r.RateLimitedTotal.WithLabelValues(client).Inc()
}

// UpdateSystemMetrics refreshes the uptime gauge.
func (r *Registry) UpdateSystemMetrics(startTime time.Time) {
	r.UptimeSeconds.Set(time.Since(startTime).Seconds())
}
