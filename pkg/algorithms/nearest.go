package algorithms

import (
	"context"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// NodeMatcher selects target nodes for FindNearest.
type NodeMatcher func(*storage.Node) bool

// MatchType matches nodes of a type.
func MatchType(t storage.NodeType) NodeMatcher {
	return func(n *storage.Node) bool { return n.Type == t }
}

// MatchTag matches nodes carrying a tag.
func MatchTag(tag string) NodeMatcher {
	return func(n *storage.Node) bool { return n.HasTag(tag) }
}

// MatchBuilding matches nodes inside a building.
func MatchBuilding(buildingID string) NodeMatcher {
	return func(n *storage.Node) bool { return n.BuildingID == buildingID }
}

// MatchAll matches nodes satisfying every matcher.
func MatchAll(ms ...NodeMatcher) NodeMatcher {
	return func(n *storage.Node) bool {
		for _, m := range ms {
			if !m(n) {
				return false
			}
		}
		return true
	}
}

// FindNearest runs a uniform-cost search from originID and returns the
// path to the cheapest node that matches. The origin itself matches at
// zero cost.
func (p *Pathfinder) FindNearest(ctx context.Context, g *storage.Graph, f EdgeFilter,
	originID string, match NodeMatcher, at time.Time, rc constraints.RequesterContext) (*Path, error) {

	origin, err := g.GetNode(originID)
	if err != nil {
		return nil, &PathError{Op: "FindNearest", Origin: originID, Err: err}
	}

	path, err := p.search(ctx, g, f, origin, at, rc, match, zeroHeuristic)
	if err != nil {
		return nil, &PathError{Op: "FindNearest", Origin: originID, Expanded: path.Stats.Expanded, Err: err}
	}
	return path, nil
}
