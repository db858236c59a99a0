package health

import (
	"context"
	"sync"
	"time"
)

// Status represents the health status of a component
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Check represents a health check for a specific component
type Check struct {
	Name        string         `json:"name"`
	Status      Status         `json:"status"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	LastChecked time.Time      `json:"last_checked"`
	Duration    time.Duration  `json:"-"`
	DurationMs  float64        `json:"duration_ms"`
}

// CheckFunc performs a health check. Checks should respect ctx.
type CheckFunc func(ctx context.Context) Check

// HealthChecker manages health checks for the navigator
type HealthChecker struct {
	mu          sync.RWMutex
	checks      map[string]CheckFunc
	readyChecks map[string]CheckFunc // Checks for readiness
	liveChecks  map[string]CheckFunc // Checks for liveness

	started time.Time
	now     func() time.Time
}

// Response represents the overall health response
type Response struct {
	Status        Status           `json:"status"`
	Timestamp     time.Time        `json:"timestamp"`
	Checks        map[string]Check `json:"checks"`
	UptimeSeconds float64          `json:"uptime_seconds"`
}
