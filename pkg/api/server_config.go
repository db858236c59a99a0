package api

import (
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/health"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/metrics"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/snapshot"
)

// DefaultMaxBodyBytes bounds request bodies when Config.MaxBodyBytes is unset.
const DefaultMaxBodyBytes = 64 << 20

// Config wires a Server to the navigator and its supporting services.
type Config struct {
	Navigator *navigator.Navigator

	// Health defaults to a checker with graph and worker pool checks.
	Health *health.HealthChecker
	// Metrics enables /metrics and per-route instrumentation when set.
	Metrics *metrics.Registry
	Logger  logging.Logger

	// Auth validates bearer tokens. With no validator every request is
	// anonymous and the admin API is closed.
	Auth        auth.TokenValidator
	RequireAuth bool

	// Snapshots receives a snapshot on POST /v1/admin/snapshot and, with
	// SaveOnIngest, after each ingestion.
	Snapshots    snapshot.Store
	SnapshotKeep int
	SaveOnIngest bool

	// ReadOnly rejects ingestion and constraint edits, as on a replica.
	ReadOnly bool

	MaxBodyBytes int64
	CORS         *middleware.CORSConfig
	RateLimit    *middleware.RateLimitConfig // nil disables rate limiting
	TLSEnabled   bool
	Version      string
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.CORS == nil {
		c.CORS = middleware.DefaultCORSConfig()
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	return c
}

// statsInterval is how often system and graph gauges are refreshed.
const statsInterval = 10 * time.Second
