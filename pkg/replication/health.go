package replication

import (
	"fmt"
	"time"
)

// HealthStatus represents the health of replication on a node.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthThresholds defines thresholds for replication health.
type HealthThresholds struct {
	MaxVersionLag    uint64        // graph versions a replica may trail by
	HeartbeatTimeout time.Duration // maximum time since a replica last answered
	MaxSyncAge       time.Duration // replicas: maximum time since the last applied snapshot, 0 = unlimited
}

// DefaultHealthThresholds returns default health thresholds
func DefaultHealthThresholds() HealthThresholds {
	return HealthThresholds{
		MaxVersionLag:    5,
		HeartbeatTimeout: 10 * time.Second,
	}
}

// Check evaluates s against th at now.
func Check(s State, th HealthThresholds, now time.Time) (HealthStatus, string) {
	switch s.Role {
	case RolePrimary:
		return checkPrimary(s, th, now)
	case RoleReplica:
		if s.LastSync.IsZero() {
			return HealthStatusUnhealthy, "no snapshot applied yet"
		}
		if th.MaxSyncAge > 0 && now.Sub(s.LastSync) > th.MaxSyncAge {
			return HealthStatusDegraded, fmt.Sprintf("last snapshot applied %s ago", now.Sub(s.LastSync).Round(time.Second))
		}
		return HealthStatusHealthy, fmt.Sprintf("applied version %s", s.Version)
	}
	return HealthStatusUnhealthy, fmt.Sprintf("unknown role %q", s.Role)
}

func checkPrimary(s State, th HealthThresholds, now time.Time) (HealthStatus, string) {
	var lagging, silent int
	for _, r := range s.Replicas {
		switch {
		case now.Sub(r.LastSeen) > th.HeartbeatTimeout:
			silent++
		case r.Lag > th.MaxVersionLag:
			lagging++
		}
	}

	switch {
	case len(s.Replicas) > 0 && silent == len(s.Replicas):
		return HealthStatusDegraded, fmt.Sprintf("all %d replicas silent", silent)
	case silent > 0 || lagging > 0:
		return HealthStatusDegraded, fmt.Sprintf("%d replicas silent, %d lagging", silent, lagging)
	}
	return HealthStatusHealthy, fmt.Sprintf("%d replicas in sync", len(s.Replicas))
}
