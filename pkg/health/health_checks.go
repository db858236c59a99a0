package health

import (
	"context"
	"runtime"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/replication"
)

// StatsSource reports navigator counters.
type StatsSource interface {
	Stats() navigator.Stats
}

// SimpleCheck creates a check that always reports healthy. It serves as
// the liveness probe.
func SimpleCheck(name string) CheckFunc {
	return func(context.Context) Check {
		return Check{Name: name, Status: StatusHealthy}
	}
}

// GraphCheck reports unhealthy until a campus map with at least one node
// has been published.
func GraphCheck(src StatsSource) CheckFunc {
	return func(context.Context) Check {
		s := src.Stats()
		check := Check{
			Name: "graph",
			Details: map[string]any{
				"graph_version":      s.GraphVersion,
				"constraint_version": s.ConstraintVersion,
				"nodes":              s.Nodes,
				"edges":              s.Edges,
				"buildings":          s.Buildings,
				"constraints":        s.Constraints,
			},
		}
		if !s.CommittedAt.IsZero() {
			check.Details["committed_at"] = s.CommittedAt
		}

		if s.Nodes == 0 {
			check.Status = StatusUnhealthy
			check.Message = "No campus map loaded"
		} else {
			check.Status = StatusHealthy
			check.Message = "Campus map loaded"
		}
		return check
	}
}

// TopologyCheck reports degraded while the graph has error-level
// violations or one-way traps.
func TopologyCheck(topology func() *navigator.TopologyReport) CheckFunc {
	return func(context.Context) Check {
		report := topology()
		check := Check{
			Name: "topology",
			Details: map[string]any{
				"graph_version": report.GraphVersion,
				"errors":        report.Errors,
				"warnings":      report.Warnings,
				"components":    report.Components,
				"one_way_traps": len(report.OneWayTraps),
			},
		}

		switch {
		case report.Errors > 0:
			check.Status = StatusDegraded
			check.Message = "Topology errors present"
		case len(report.OneWayTraps) > 0:
			check.Status = StatusDegraded
			check.Message = "One-way traps present"
		default:
			check.Status = StatusHealthy
			check.Message = "Topology consistent"
		}
		return check
	}
}

// WorkerPoolCheck reports degraded when more than maxQueuePerWorker
// queries are waiting per worker.
func WorkerPoolCheck(src StatsSource, maxQueuePerWorker int) CheckFunc {
	return func(context.Context) Check {
		s := src.Stats()
		check := Check{
			Name: "workers",
			Details: map[string]any{
				"workers":   s.Workers,
				"queued":    s.Queued,
				"active":    s.Active,
				"completed": s.Completed,
			},
		}

		if s.Workers > 0 && s.Queued > s.Workers*maxQueuePerWorker {
			check.Status = StatusDegraded
			check.Message = "Query backlog"
		} else {
			check.Status = StatusHealthy
			check.Message = "Workers keeping up"
		}
		return check
	}
}

// ReplicationCheck maps replication state onto a health check.
func ReplicationCheck(state func() replication.State, th replication.HealthThresholds) CheckFunc {
	return func(context.Context) Check {
		s := state()
		check := Check{
			Name: "replication",
			Details: map[string]any{
				"role":    s.Role,
				"node_id": s.NodeID,
				"version": s.Version.String(),
			},
		}
		if s.Role == replication.RolePrimary {
			check.Details["replicas"] = len(s.Replicas)
		}
		if s.Primary != "" {
			check.Details["primary"] = s.Primary
		}

		status, message := replication.Check(s, th, time.Now())
		check.Message = message
		switch status {
		case replication.HealthStatusHealthy:
			check.Status = StatusHealthy
		case replication.HealthStatusDegraded:
			check.Status = StatusDegraded
		default:
			check.Status = StatusUnhealthy
		}
		return check
	}
}

// DatabaseCheck creates a health check for database connectivity
func DatabaseCheck(ping func(ctx context.Context) error) CheckFunc {
	return func(ctx context.Context) Check {
		check := Check{
			Name: "database",
		}

		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := ping(ctx); err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = StatusHealthy
			check.Message = "Connected"
		}

		return check
	}
}

// MemoryCheck creates a health check for memory usage
func MemoryCheck(getUsage func() (alloc, sys uint64)) CheckFunc {
	return func(context.Context) Check {
		check := Check{
			Name:    "memory",
			Details: make(map[string]any),
		}

		alloc, sys := getUsage()

		check.Details["alloc_bytes"] = alloc
		check.Details["sys_bytes"] = sys

		var usagePercent float64
		if sys > 0 {
			usagePercent = float64(alloc) / float64(sys) * 100
		}

		if usagePercent > 90 {
			check.Status = StatusDegraded
			check.Message = "High memory usage"
		} else {
			check.Status = StatusHealthy
			check.Message = "Memory usage normal"
		}

		return check
	}
}

// RuntimeMemory reads heap allocation and memory obtained from the OS.
func RuntimeMemory() (alloc, sys uint64) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.Alloc, m.Sys
}
