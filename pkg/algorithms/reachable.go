package algorithms

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// ReachOptions configures the reachable-area search.
type ReachOptions struct {
	Budget     storage.Cost // must be >= 0
	MaxResults int          // 0 = unlimited; cheaper nodes are found first
}

// ReachResult holds every node reachable within the budget.
type ReachResult struct {
	OriginID       string
	Costs          map[string]storage.Cost // node ID -> cheapest effective cost
	TotalReachable int
}

// Nodes returns the reachable node IDs ordered by cost, then ID.
func (r *ReachResult) Nodes() []string {
	ids := slices.Sorted(maps.Keys(r.Costs))
	slices.SortStableFunc(ids, func(a, b string) int {
		switch {
		case r.Costs[a] < r.Costs[b]:
			return -1
		case r.Costs[a] > r.Costs[b]:
			return 1
		}
		return 0
	})
	return ids
}

// Reachable returns all nodes the requester can reach from originID with
// an effective cost of at most opts.Budget. The origin is never included.
func (p *Pathfinder) Reachable(ctx context.Context, g *storage.Graph, f EdgeFilter,
	originID string, opts ReachOptions, at time.Time, rc constraints.RequesterContext) (*ReachResult, error) {

	fail := func(err error) error {
		return &PathError{Op: "Reachable", Origin: originID, Err: err}
	}
	if opts.Budget < 0 {
		return nil, fail(fmt.Errorf("budget must be >= 0, got %s", opts.Budget))
	}
	origin, err := g.GetNode(originID)
	if err != nil {
		return nil, fail(err)
	}
	if f == nil {
		f = allowAll{}
	}

	dist := map[string]storage.Cost{origin.ID: 0}
	result := &ReachResult{OriginID: originID, Costs: make(map[string]storage.Cost)}

	q := &frontier{}
	q.push(origin.ID, 0, 0)
	for q.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fail(timeoutError(err))
		}

		item := q.pop()
		if item.g > dist[item.nodeID] {
			continue
		}
		if item.nodeID != originID {
			result.Costs[item.nodeID] = item.g
			result.TotalReachable++
			if opts.MaxResults > 0 && result.TotalReachable >= opts.MaxResults {
				return result, nil
			}
		}

		node, _ := g.GetNode(item.nodeID)
		neighbors, _ := g.GetNeighbors(item.nodeID)
		for _, nb := range neighbors {
			e, _ := g.GetEdge(nb.EdgeID)
			if !f.Allows(e, at, rc) {
				continue
			}
			to, _ := g.GetNode(nb.NodeID)
			ng := item.g.Add(p.costs.EdgeCost(node, to, e))
			if ng > opts.Budget || ng == storage.MaxCost {
				continue
			}
			if old, seen := dist[to.ID]; seen && ng >= old {
				continue
			}
			dist[to.ID] = ng
			q.push(to.ID, ng, ng)
		}
	}

	return result, nil
}
