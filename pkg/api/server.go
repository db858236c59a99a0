// Package api serves the campus navigator over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/api/middleware"
	"github.com/dd0wney/cluso-navigator/pkg/graphql"
	"github.com/dd0wney/cluso-navigator/pkg/health"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewServer creates a new API server
func NewServer(cfg Config) (*Server, error) {
	if cfg.Navigator == nil {
		return nil, errors.New("api: navigator is required")
	}
	cfg = cfg.withDefaults()

	schema, err := graphql.GenerateSchema(cfg.Navigator)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:            cfg,
		nav:            cfg.Navigator,
		graphqlHandler: graphql.NewGraphQLHandler(schema, cfg.Logger),
		healthChecker:  cfg.Health,
		metrics:        cfg.Metrics,
		auth:           cfg.Auth,
		logger:         cfg.Logger.With(logging.Component("api")),
		startTime:      time.Now(),
	}
	if s.healthChecker == nil {
		s.healthChecker = health.NewHealthChecker()
		s.healthChecker.RegisterLivenessCheck("server", health.SimpleCheck("server"))
		s.healthChecker.RegisterReadinessCheck("graph", health.GraphCheck(s.nav))
		s.healthChecker.RegisterCheck("workers", health.WorkerPoolCheck(s.nav, 64))
	}
	if cfg.RateLimit != nil {
		s.rateLimiter = middleware.NewRateLimiter(cfg.RateLimit, s.logger)
	}

	s.handler = s.middleware(s.routes())
	return s, nil
}

// Handler returns the root handler with every middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Close releases background resources.
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	// Route queries
	s.handle(mux, "POST /v1/routes", s.requireAuth(s.handleRoute))
	s.handle(mux, "POST /v1/routes/batch", s.requireAuth(s.handleBatchRoutes))
	s.handle(mux, "POST /v1/routes/nearest", s.requireAuth(s.handleNearest))

	// Campus graph
	s.handle(mux, "GET /v1/nodes/{id}", s.handleGetNode)
	s.handle(mux, "GET /v1/nodes/{id}/neighbors", s.requireAuth(s.handleNeighbors))
	s.handle(mux, "GET /v1/nodes/{id}/reachable", s.requireAuth(s.handleReachable))
	s.handle(mux, "GET /v1/edges/{id}", s.handleGetEdge)
	s.handle(mux, "GET /v1/edges/{id}/traversable", s.requireAuth(s.handleTraversable))
	s.handle(mux, "GET /v1/buildings", s.handleBuildings)
	s.handle(mux, "GET /v1/stats", s.handleStats)

	// Admin
	s.handle(mux, "POST /v1/admin/ingest", s.requireAdmin(s.writable(s.handleIngest)))
	s.handle(mux, "GET /v1/admin/export", s.requireAdmin(s.handleExport))
	s.handle(mux, "GET /v1/admin/topology", s.requireAdmin(s.handleTopology))
	s.handle(mux, "GET /v1/admin/constraints", s.requireAdmin(s.handleListConstraints))
	s.handle(mux, "POST /v1/admin/constraints", s.requireAdmin(s.writable(s.handleAddConstraint)))
	s.handle(mux, "DELETE /v1/admin/constraints/{id}", s.requireAdmin(s.writable(s.handleRemoveConstraint)))
	s.handle(mux, "POST /v1/admin/snapshot", s.requireAdmin(s.handleSnapshot))

	// GraphQL
	s.handle(mux, "POST /graphql", s.requireAuth(s.graphqlHandler.ServeHTTP))

	// Health and metrics
	s.healthChecker.Register(mux)
	if s.metrics != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.GetPrometheusRegistry(), promhttp.HandlerOpts{}))
	}

	return mux
}

// handle registers h under pattern, instrumented with the pattern's path
// as the metrics label.
func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	_, path, _ := strings.Cut(pattern, " ")
	mux.Handle(pattern, s.instrument(path, h))
}

// RunMetrics refreshes system and graph gauges until ctx is done.
func (s *Server) RunMetrics(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	for {
		s.updateMetrics()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) updateMetrics() {
	s.metrics.UpdateSystemMetrics(s.startTime)
	st := s.nav.Stats()
	s.metrics.UpdateGraphMetrics(st.Nodes, st.Edges, st.Buildings, st.Constraints, st.GraphVersion)
}
