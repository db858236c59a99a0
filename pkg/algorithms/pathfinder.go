package algorithms

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Strategy selects the search heuristic.
type Strategy string

const (
	// StrategyAStar guides outdoor expansion by straight-line distance.
	StrategyAStar Strategy = "astar"
	// StrategyDijkstra uses no heuristic.
	StrategyDijkstra Strategy = "dijkstra"
)

// ParseStrategy parses a strategy name. Empty means A*.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAStar:
		return StrategyAStar, nil
	case StrategyDijkstra:
		return StrategyDijkstra, nil
	}
	return "", fmt.Errorf("unknown search strategy %q", s)
}

// Options configures a Pathfinder.
type Options struct {
	TransitionPenalty storage.Cost
	Strategy          Strategy
	MaxExpansions     int // 0 = unbounded
}

// DefaultOptions returns A* with no transition penalty and no expansion bound.
func DefaultOptions() Options {
	return Options{Strategy: StrategyAStar}
}

// SearchStats describes the work a search did.
type SearchStats struct {
	Expanded int           `json:"expanded"`
	Pushed   int           `json:"pushed"`
	Reopened int           `json:"reopened"`
	Duration time.Duration `json:"duration"`
}

// Path is an optimal node sequence. EdgeIDs[i] joins NodeIDs[i] and NodeIDs[i+1].
type Path struct {
	NodeIDs []string
	EdgeIDs []string
	Cost    storage.Cost
	Stats   SearchStats
}

// Pathfinder runs shortest-path searches over graph snapshots. It holds no
// per-query state and is safe for concurrent use.
type Pathfinder struct {
	opts  Options
	costs CostModel
}

// NewPathfinder creates a pathfinder
func NewPathfinder(opts Options) *Pathfinder {
	if opts.Strategy == "" {
		opts.Strategy = StrategyAStar
	}
	return &Pathfinder{opts: opts, costs: CostModel{TransitionPenalty: opts.TransitionPenalty}}
}

// Options returns the pathfinder configuration.
func (p *Pathfinder) Options() Options { return p.opts }

// CostModel returns the model used to price edges.
func (p *Pathfinder) CostModel() CostModel { return p.costs }

// FindPath returns the minimum-cost path from originID to destID over edges
// the filter allows at the given time for the requester. A nil filter
// allows every edge.
//
// origin == dest yields a single-node zero-cost path without consulting
// the filter. Unknown endpoints fail with a storage not-found error, no
// route with ErrNoPath, and a done context with ErrTimeout; all are wrapped
// in *PathError.
func (p *Pathfinder) FindPath(ctx context.Context, g *storage.Graph, f EdgeFilter,
	originID, destID string, at time.Time, rc constraints.RequesterContext) (*Path, error) {

	fail := func(err error, stats SearchStats) error {
		return &PathError{Op: "FindPath", Origin: originID, Destination: destID, Expanded: stats.Expanded, Err: err}
	}

	origin, err := g.GetNode(originID)
	if err != nil {
		return nil, fail(err, SearchStats{})
	}
	dest, err := g.GetNode(destID)
	if err != nil {
		return nil, fail(err, SearchStats{})
	}
	if originID == destID {
		return &Path{NodeIDs: []string{originID}, EdgeIDs: []string{}}, nil
	}

	h := p.heuristic(g, dest)
	path, err := p.search(ctx, g, f, origin, at, rc, func(n *storage.Node) bool { return n.ID == destID }, h)
	if err != nil {
		return nil, fail(err, path.Stats)
	}
	return path, nil
}

// heuristic returns a lower bound on the cost from a node to dest: the
// straight-line distance scaled by the graph's minimum cost per metre for
// outdoor nodes, zero for indoor nodes and for Dijkstra.
func (p *Pathfinder) heuristic(g *storage.Graph, dest *storage.Node) func(*storage.Node) storage.Cost {
	if p.opts.Strategy == StrategyDijkstra {
		return zeroHeuristic
	}
	scale := g.HeuristicScale() * storage.CostScale
	return func(n *storage.Node) storage.Cost {
		if !n.IsOutdoor() {
			return 0
		}
		return storage.Cost(math.Floor(n.Position.Distance(dest.Position) * scale))
	}
}

func zeroHeuristic(*storage.Node) storage.Cost { return 0 }

type hop struct {
	prev string
	edge string
}

// search is a best-first search from origin that stops at the first node
// popped that satisfies isGoal. Nodes are reopened when a cheaper path to
// them is found, so the result is optimal for any admissible heuristic.
// The returned path is never nil; on error it only carries stats.
func (p *Pathfinder) search(ctx context.Context, g *storage.Graph, f EdgeFilter, origin *storage.Node,
	at time.Time, rc constraints.RequesterContext,
	isGoal func(*storage.Node) bool, h func(*storage.Node) storage.Cost) (*Path, error) {

	if f == nil {
		f = allowAll{}
	}
	start := time.Now()
	result := &Path{}
	stats := &result.Stats
	defer func() { stats.Duration = time.Since(start) }()

	dist := map[string]storage.Cost{origin.ID: 0}
	via := make(map[string]hop)
	closed := make(map[string]bool)

	q := &frontier{}
	q.push(origin.ID, 0, h(origin))
	stats.Pushed++

	for q.Len() > 0 {
		if stats.Expanded%16 == 0 {
			if err := ctx.Err(); err != nil {
				return result, timeoutError(err)
			}
		}

		item := q.pop()
		if item.g > dist[item.nodeID] {
			continue // superseded by a cheaper push
		}
		node, err := g.GetNode(item.nodeID)
		if err != nil {
			return result, err
		}
		if isGoal(node) {
			result.NodeIDs, result.EdgeIDs = unwind(via, origin.ID, node.ID)
			result.Cost = item.g
			return result, nil
		}

		if p.opts.MaxExpansions > 0 && stats.Expanded >= p.opts.MaxExpansions {
			return result, limitError()
		}
		stats.Expanded++
		closed[node.ID] = true

		neighbors, err := g.GetNeighbors(node.ID)
		if err != nil {
			return result, err
		}
		for _, nb := range neighbors {
			e, err := g.GetEdge(nb.EdgeID)
			if err != nil {
				return result, err
			}
			if !f.Allows(e, at, rc) {
				continue
			}
			to, err := g.GetNode(nb.NodeID)
			if err != nil {
				return result, err
			}

			ng := item.g.Add(p.costs.EdgeCost(node, to, e))
			if ng == storage.MaxCost {
				continue
			}
			if old, seen := dist[to.ID]; seen && ng >= old {
				continue
			}
			if closed[to.ID] {
				delete(closed, to.ID)
				stats.Reopened++
			}
			dist[to.ID] = ng
			via[to.ID] = hop{prev: node.ID, edge: e.ID}
			q.push(to.ID, ng, ng.Add(h(to)))
			stats.Pushed++
		}
	}

	return result, ErrNoPath
}

func unwind(via map[string]hop, originID, goalID string) ([]string, []string) {
	nodes := []string{goalID}
	edges := []string{}
	for cur := goalID; cur != originID; {
		step := via[cur]
		nodes = append(nodes, step.prev)
		edges = append(edges, step.edge)
		cur = step.prev
	}
	reverse(nodes)
	reverse(edges)
	return nodes, edges
}

func reverse(s []string) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
