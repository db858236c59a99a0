package algorithms

import (
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// EdgeFilter decides whether a search may use an edge.
// *constraints.Filter implements it.
type EdgeFilter interface {
	Allows(e *storage.Edge, at time.Time, rc constraints.RequesterContext) bool
}

type allowAll struct{}

func (allowAll) Allows(*storage.Edge, time.Time, constraints.RequesterContext) bool { return true }

// CostModel turns base edge costs into effective search costs.
type CostModel struct {
	// TransitionPenalty is added to every floor-changing or stairs/elevator edge.
	TransitionPenalty storage.Cost
}

// IsTransition reports whether walking e between from and to changes
// floor or uses a vertical connector. Edges touching an outdoor node are
// never transitions.
func IsTransition(from, to *storage.Node, e *storage.Edge) bool {
	if from.IsOutdoor() || to.IsOutdoor() {
		return false
	}
	return e.Kind.Vertical() || from.Floor != to.Floor
}

// EdgeCost returns the effective cost of walking e from -> to.
func (m CostModel) EdgeCost(from, to *storage.Node, e *storage.Edge) storage.Cost {
	if m.TransitionPenalty > 0 && IsTransition(from, to, e) {
		return e.Cost.Add(m.TransitionPenalty)
	}
	return e.Cost
}
