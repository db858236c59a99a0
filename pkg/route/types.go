// Package route turns a node/edge sequence into a layered, costed route.
package route

import (
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Layer tags the part of the campus a segment runs through.
type Layer string

const (
	LayerOutdoor    Layer = "outdoor"
	LayerIndoor     Layer = "indoor"
	LayerTransition Layer = "transition"
)

// Step is one position in a walk. The first step has no edge; every other
// step names the edge used to arrive at its node.
type Step struct {
	NodeID string `json:"node_id"`
	EdgeID string `json:"edge_id,omitempty"`
}

// Segment is a single edge traversal. Floors are meaningful on indoor and
// transition layers only.
type Segment struct {
	Index      int              `json:"index"`
	From       string           `json:"from"`
	To         string           `json:"to"`
	EdgeID     string           `json:"edge_id"`
	Kind       storage.EdgeKind `json:"kind"`
	Cost       storage.Cost     `json:"cost"`
	Cumulative storage.Cost     `json:"cumulative"`
	Layer      Layer            `json:"layer"`
	BuildingID string           `json:"building_id,omitempty"`
	FromFloor  int              `json:"from_floor"`
	ToFloor    int              `json:"to_floor"`
}

// Leg is a maximal run of segments in the same layer.
type Leg struct {
	Layer        Layer        `json:"layer"`
	BuildingID   string       `json:"building_id,omitempty"`
	FromFloor    int          `json:"from_floor"`
	ToFloor      int          `json:"to_floor"`
	From         string       `json:"from"`
	To           string       `json:"to"`
	Cost         storage.Cost `json:"cost"`
	FirstSegment int          `json:"first_segment"`
	LastSegment  int          `json:"last_segment"`
	Instruction  string       `json:"instruction"`
}

// Route is the result of a path query
type Route struct {
	Origin       string       `json:"origin"`
	Destination  string       `json:"destination"`
	Nodes        []string     `json:"nodes"`
	Segments     []Segment    `json:"segments"`
	Legs         []Leg        `json:"legs"`
	TotalCost    storage.Cost `json:"total_cost"`
	GraphVersion uint64       `json:"graph_version"`
	QueryTime    time.Time    `json:"query_time"`
}

// Steps returns the walk the route was composed from.
func (r *Route) Steps() []Step {
	steps := make([]Step, 0, len(r.Nodes))
	steps = append(steps, Step{NodeID: r.Origin})
	for _, s := range r.Segments {
		steps = append(steps, Step{NodeID: s.To, EdgeID: s.EdgeID})
	}
	return steps
}

// StepsFromPath converts parallel node and edge ID lists into steps.
func StepsFromPath(nodeIDs, edgeIDs []string) []Step {
	steps := make([]Step, len(nodeIDs))
	for i, id := range nodeIDs {
		steps[i].NodeID = id
		if i > 0 && i-1 < len(edgeIDs) {
			steps[i].EdgeID = edgeIDs[i-1]
		}
	}
	return steps
}
