// Package navigator is the query and ingestion facade of the campus
// navigator. It pairs each published graph with its constraint set, runs
// route searches on a bounded worker pool and commits ingestions
// atomically across both.
package navigator

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/parallel"
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Navigator answers route queries over the current campus view.
type Navigator struct {
	cfg        Config
	store      *storage.GraphStorage
	registry   *constraints.Registry
	view       atomic.Pointer[View]
	pool       *parallel.WorkerPool
	pathfinder *algorithms.Pathfinder
	composer   *route.Composer
	logger     logging.Logger

	writeMu   sync.Mutex // serializes ingestion and constraint edits
	listeners []func(*View)
	now       func() time.Time
}

// New creates a navigator with an empty campus.
func New(cfg Config) (*Navigator, error) {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.DefaultTimeout <= 0 {
		cfg.DefaultTimeout = 5 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNopLogger()
	}
	if cfg.TransitionPenalty < 0 || cfg.TransitionPenalty > storage.MaxEdgeCost {
		return nil, fmt.Errorf("transition penalty must be in [0, %s], got %s", storage.MaxEdgeCost, cfg.TransitionPenalty)
	}

	logger := cfg.Logger.With(logging.Component("navigator"))
	pool, err := parallel.NewWorkerPoolWithLogger(cfg.Workers, logger)
	if err != nil {
		return nil, err
	}

	pf := algorithms.NewPathfinder(algorithms.Options{
		TransitionPenalty: cfg.TransitionPenalty,
		Strategy:          cfg.Strategy,
		MaxExpansions:     cfg.MaxExpansions,
	})

	n := &Navigator{
		cfg:        cfg,
		store:      storage.NewGraphStorageWithConfig(storage.StorageConfig{StrictTopology: cfg.StrictTopology}),
		registry:   constraints.NewRegistry(),
		pool:       pool,
		pathfinder: pf,
		composer:   route.NewComposer(pf.CostModel()),
		logger:     logger,
		now:        time.Now,
	}
	n.publishView(n.store.Snapshot(), n.registry.Current())
	return n, nil
}

// Close stops the worker pool after queued queries finish.
func (n *Navigator) Close() {
	n.pool.Close()
}

// View returns the current graph and constraint set.
func (n *Navigator) View() *View {
	return n.view.Load()
}

// Graph returns the current graph snapshot.
func (n *Navigator) Graph() *storage.Graph {
	return n.view.Load().Graph
}

// Location returns the campus time zone.
func (n *Navigator) Location() *time.Location {
	return n.cfg.Location
}

// Config returns the effective configuration.
func (n *Navigator) Config() Config {
	return n.cfg
}

// OnPublish registers fn to run after every new view is published. Calls
// are serialized in publish order and must not write to the navigator.
func (n *Navigator) OnPublish(fn func(*View)) {
	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	n.listeners = append(n.listeners, fn)
}

// Stats returns graph and worker pool counters.
func (n *Navigator) Stats() Stats {
	v := n.view.Load()
	ss := n.store.GetStatistics()
	ps := n.pool.Stats()
	return Stats{
		GraphVersion:      v.Graph.Version(),
		ConstraintVersion: v.Constraints.Version(),
		Nodes:             v.Graph.NodeCount(),
		Edges:             v.Graph.EdgeCount(),
		Buildings:         v.Graph.BuildingCount(),
		Constraints:       v.Constraints.Len(),
		CommittedAt:       v.Graph.CommittedAt(),
		Commits:           ss.Commits,
		Rejected:          ss.Rejected,
		Workers:           ps.Workers,
		Queued:            ps.Queued,
		Active:            ps.Active,
		Completed:         ps.Completed,
	}
}

// Topology checks the current graph.
func (n *Navigator) Topology() *TopologyReport {
	g := n.view.Load().Graph
	violations := storage.CheckTopology(g)
	report := &TopologyReport{
		GraphVersion: g.Version(),
		Violations:   violations,
		OneWayTraps:  algorithms.OneWayTraps(g),
		Components:   len(algorithms.StronglyConnectedComponents(g).Components),
	}
	for _, v := range violations {
		switch v.Severity {
		case storage.Error:
			report.Errors++
		case storage.Warning:
			report.Warnings++
		}
	}
	return report
}

// publishView must be called with writeMu held, except from New.
func (n *Navigator) publishView(g *storage.Graph, set *constraints.Set) *View {
	v := &View{
		Graph:       g,
		Constraints: set,
		Filter:      constraints.NewFilter(g, set, n.cfg.Location),
	}
	n.view.Store(v)

	if m := n.cfg.Metrics; m != nil {
		m.UpdateGraphMetrics(g.NodeCount(), g.EdgeCount(), g.BuildingCount(), set.Len(), g.Version())
	}
	for _, fn := range n.listeners {
		fn(v)
	}
	return v
}
