package navigator

import (
	"context"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/google/uuid"
)

// Ingest applies doc to the campus. The graph and constraint changes are
// validated together and published as one view; on any error nothing is
// published and the current view is unchanged.
func (n *Navigator) Ingest(ctx context.Context, doc *ingest.Document, mode ingest.Mode) (*IngestResult, error) {
	id := uuid.NewString()
	start := time.Now()
	logger := n.logger.With(logging.String("ingestion_id", id), logging.String("mode", string(mode)))

	res, err := n.ingest(ctx, id, doc, mode)
	duration := time.Since(start)
	if m := n.cfg.Metrics; m != nil {
		status := "ok"
		if err != nil {
			status = "rejected"
		}
		m.RecordIngestion(string(mode), status, duration)
	}
	if err != nil {
		logger.Warn("ingestion rejected", logging.Error(err), logging.Latency(duration))
		return nil, err
	}

	res.Duration = duration
	logger.Info("ingestion committed",
		logging.Version(res.GraphVersion),
		logging.Int("nodes", res.Nodes),
		logging.Int("edges", res.Edges),
		logging.Int("constraints", res.Constraints),
		logging.Int("violations", len(res.Violations)),
		logging.Latency(duration))
	return res, nil
}

func (n *Navigator) ingest(ctx context.Context, id string, doc *ingest.Document, mode ingest.Mode) (*IngestResult, error) {
	if mode != ingest.ModeReplace && mode != ingest.ModeMerge {
		return nil, fmt.Errorf("%w: unknown ingestion mode %q", ingest.ErrInvalidDocument, mode)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	cur := n.view.Load()
	g := cur.Graph
	stagedGraph := false
	if mode == ingest.ModeReplace || doc.GraphChanges() {
		b, err := doc.ToBatch(mode, cur.Graph)
		if err != nil {
			return nil, err
		}
		if g, err = n.store.Stage(b); err != nil {
			return nil, err
		}
		stagedGraph = true
	}

	change := constraints.Change{Upsert: doc.Constraints, Replace: mode == ingest.ModeReplace}
	if mode == ingest.ModeMerge {
		change.Remove = doc.DeleteConstraints
	}
	set, err := n.registry.StageChange(g, change)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingestion canceled: %w", err)
	}

	if stagedGraph {
		if err := n.store.Publish(g); err != nil {
			return nil, err
		}
	}
	if err := n.registry.Publish(set); err != nil {
		// Unreachable while writeMu serializes writers.
		return nil, err
	}
	n.publishView(g, set)

	violations := storage.CheckTopology(g)
	n.recordTopology(violations)
	return &IngestResult{
		ID:                id,
		Mode:              mode,
		GraphVersion:      g.Version(),
		ConstraintVersion: set.Version(),
		Nodes:             g.NodeCount(),
		Edges:             g.EdgeCount(),
		Buildings:         g.BuildingCount(),
		Constraints:       set.Len(),
		Violations:        violations,
	}, nil
}

// AddConstraints inserts or replaces constraints on the current graph.
func (n *Navigator) AddConstraints(cs ...*constraints.Constraint) (*constraints.Set, error) {
	for _, c := range cs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	g := n.view.Load().Graph
	set, err := n.registry.Add(g, cs...)
	if err != nil {
		return nil, err
	}
	n.publishView(g, set)
	for _, c := range cs {
		target := logging.EdgeID(c.EdgeID)
		if c.EdgeID == "" {
			target = logging.NodeID(c.NodeID)
		}
		n.logger.Info("constraint added", logging.String("constraint_id", c.ID), logging.String("kind", string(c.Kind)), target)
	}
	return set, nil
}

// RemoveConstraints deletes constraints by ID.
func (n *Navigator) RemoveConstraints(ids ...string) (*constraints.Set, error) {
	n.writeMu.Lock()
	defer n.writeMu.Unlock()

	set, err := n.registry.Remove(ids...)
	if err != nil {
		return nil, err
	}
	n.publishView(n.view.Load().Graph, set)
	n.logger.Info("constraints removed", logging.Count(len(ids)))
	return set, nil
}

func (n *Navigator) recordTopology(violations []storage.Violation) {
	m := n.cfg.Metrics
	if m == nil {
		return
	}
	counts := map[string]int{
		storage.Info.String():    0,
		storage.Warning.String(): 0,
		storage.Error.String():   0,
	}
	for _, v := range violations {
		counts[v.Severity.String()]++
	}
	m.SetTopologyViolations(counts)
}
