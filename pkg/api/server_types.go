package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/health"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/metrics"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
)

// Server represents the HTTP API server
type Server struct {
	cfg            Config
	nav            *navigator.Navigator
	graphqlHandler http.Handler
	healthChecker  *health.HealthChecker
	metrics        *metrics.Registry
	auth           auth.TokenValidator
	rateLimiter    *middleware.RateLimiter
	logger         logging.Logger
	handler        http.Handler

	snapshotMu sync.Mutex // serializes snapshot saves and pruning
	startTime  time.Time
}
