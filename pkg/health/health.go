// Package health aggregates component checks into liveness, readiness and
// overall health responses.
package health

import (
	"context"
	"time"
)

// NewHealthChecker creates a new health checker
func NewHealthChecker() *HealthChecker {
	return &HealthChecker{
		checks:      make(map[string]CheckFunc),
		readyChecks: make(map[string]CheckFunc),
		liveChecks:  make(map[string]CheckFunc),
		started:     time.Now(),
		now:         time.Now,
	}
}

// RegisterCheck registers a health check
func (hc *HealthChecker) RegisterCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.checks[name] = check
}

// RegisterReadinessCheck registers a readiness check
func (hc *HealthChecker) RegisterReadinessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.readyChecks[name] = check
}

// RegisterLivenessCheck registers a liveness check
func (hc *HealthChecker) RegisterLivenessCheck(name string, check CheckFunc) {
	hc.mu.Lock()
	defer hc.mu.Unlock()
	hc.liveChecks[name] = check
}

// Check performs all health checks
func (hc *HealthChecker) Check(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	return hc.performChecks(ctx, hc.checks)
}

// CheckReadiness performs readiness checks
func (hc *HealthChecker) CheckReadiness(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	return hc.performChecks(ctx, hc.readyChecks)
}

// CheckLiveness performs liveness checks
func (hc *HealthChecker) CheckLiveness(ctx context.Context) Response {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	return hc.performChecks(ctx, hc.liveChecks)
}

func (hc *HealthChecker) performChecks(ctx context.Context, checksMap map[string]CheckFunc) Response {
	now := hc.now()
	response := Response{
		Status:        StatusHealthy,
		Timestamp:     now,
		Checks:        make(map[string]Check, len(checksMap)),
		UptimeSeconds: now.Sub(hc.started).Seconds(),
	}

	for name, checkFunc := range checksMap {
		start := time.Now()
		check := checkFunc(ctx)
		if check.Name == "" {
			check.Name = name
		}
		check.Duration = time.Since(start)
		check.DurationMs = float64(check.Duration.Microseconds()) / 1000
		check.LastChecked = start

		response.Checks[name] = check
		response.Status = worst(response.Status, check.Status)
	}

	return response
}

// worst returns the more severe of two statuses.
func worst(a, b Status) Status {
	if a == StatusUnhealthy || b == StatusUnhealthy {
		return StatusUnhealthy
	}
	if a == StatusDegraded || b == StatusDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
