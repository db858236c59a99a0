package route

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/storage/storagetest"
)

type penalty storage.Cost

func (p penalty) EdgeCost(from, to *storage.Node, e *storage.Edge) storage.Cost {
	if !from.IsOutdoor() && !to.IsOutdoor() && (from.Floor != to.Floor || e.Kind.Vertical()) {
		return e.Cost.Add(storage.Cost(p))
	}
	return e.Cost
}

func scenarioSteps() []Step {
	return StepsFromPath([]string{"A", "B", "C", "D"}, []string{"A-B", "B-C", "C-D"})
}

func TestCompose_Scenario(t *testing.T) {
	g := storagetest.Scenario()

	r, err := NewComposer(nil).Compose(g, scenarioSteps())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	if r.TotalCost != storage.CostFromFloat(23) {
		t.Errorf("Expected total 23, got %s", r.TotalCost)
	}
	if !slices.Equal(r.Nodes, []string{"A", "B", "C", "D"}) {
		t.Errorf("Unexpected nodes %v", r.Nodes)
	}
	if r.Origin != "A" || r.Destination != "D" || r.GraphVersion != g.Version() {
		t.Errorf("Unexpected route header %+v", r)
	}

	wantLayers := []Layer{LayerOutdoor, LayerIndoor, LayerTransition}
	wantCumulative := []float64{10, 15, 23}
	for i, s := range r.Segments {
		if s.Layer != wantLayers[i] {
			t.Errorf("Segment %d: expected layer %s, got %s", i, wantLayers[i], s.Layer)
		}
		if s.Cumulative != storage.CostFromFloat(wantCumulative[i]) {
			t.Errorf("Segment %d: expected cumulative %v, got %s", i, wantCumulative[i], s.Cumulative)
		}
	}
	if tr := r.Segments[2]; tr.BuildingID != "H" || tr.FromFloor != 1 || tr.ToFloor != 2 {
		t.Errorf("Unexpected transition segment %+v", tr)
	}

	if len(r.Legs) != 3 {
		t.Fatalf("Expected 3 legs, got %d", len(r.Legs))
	}
	if r.Legs[2].Instruction != "Take the stairs from floor 1 to floor 2 in Hall" {
		t.Errorf("Unexpected instruction %q", r.Legs[2].Instruction)
	}
	if r.Legs[1].Instruction != "Continue on floor 1 of Hall from B to C" {
		t.Errorf("Unexpected instruction %q", r.Legs[1].Instruction)
	}

	if !slices.Equal(r.Steps(), scenarioSteps()) {
		t.Errorf("Steps() should round-trip, got %v", r.Steps())
	}
}

func TestCompose_SingleNode(t *testing.T) {
	g := storagetest.Scenario()
	r, err := NewComposer(nil).Compose(g, []Step{{NodeID: "C"}})
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if r.TotalCost != 0 || len(r.Segments) != 0 || len(r.Legs) != 0 || r.Origin != "C" || r.Destination != "C" {
		t.Errorf("Expected an empty zero-cost route, got %+v", r)
	}
}

func TestCompose_MergesLegs(t *testing.T) {
	b := storagetest.ScenarioBatch().
		AddNode(&storage.Node{ID: "J", Type: storage.NodeJunction}).
		AddNode(&storage.Node{ID: "C2", Type: storage.NodeRoom, Floor: 1, BuildingID: "H"}).
		AddEdge(&storage.Edge{ID: "J-A", From: "J", To: "A", Cost: 1}).
		AddEdge(&storage.Edge{ID: "C-C2", From: "C", To: "C2", Cost: 1})
	g, err := storage.NewGraph(b)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}

	steps := StepsFromPath([]string{"J", "A", "B", "C", "C2"}, []string{"J-A", "A-B", "B-C", "C-C2"})
	r, err := NewComposer(nil).Compose(g, steps)
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if len(r.Segments) != 4 || len(r.Legs) != 2 {
		t.Fatalf("Expected 4 segments in 2 legs, got %d in %d", len(r.Segments), len(r.Legs))
	}
	if l := r.Legs[0]; l.From != "J" || l.To != "B" || l.FirstSegment != 0 || l.LastSegment != 1 {
		t.Errorf("Unexpected outdoor leg %+v", l)
	}
	if l := r.Legs[1]; l.Cost != storage.CostFromFloat(5)+1 || l.LastSegment != 3 {
		t.Errorf("Unexpected indoor leg %+v", l)
	}
}

func TestCompose_Penalty(t *testing.T) {
	g := storagetest.Scenario()
	r, err := NewComposer(penalty(storage.CostFromFloat(2))).Compose(g, scenarioSteps())
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}
	if r.TotalCost != storage.CostFromFloat(25) {
		t.Errorf("Expected total 25, got %s", r.TotalCost)
	}
}

func TestCompose_Invalid(t *testing.T) {
	g := storagetest.Scenario()

	tests := []struct {
		name  string
		steps []Step
		want  error
	}{
		{"empty", nil, ErrEmptyRoute},
		{"unknown node", []Step{{NodeID: "Z"}}, storage.ErrNodeNotFound},
		{"unknown edge", []Step{{NodeID: "A"}, {NodeID: "B", EdgeID: "nope"}}, ErrBrokenStep},
		{"edge elsewhere", []Step{{NodeID: "A"}, {NodeID: "B", EdgeID: "C-D"}}, ErrBrokenStep},
		{"missing edge", []Step{{NodeID: "A"}, {NodeID: "B"}}, ErrBrokenStep},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewComposer(nil).Compose(g, tt.steps)
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCompose_CostOverflow(t *testing.T) {
	g := storagetest.Scenario()

	_, err := NewComposer(penalty(storage.MaxCost)).Compose(g, scenarioSteps())
	if !errors.Is(err, ErrCostOverflow) {
		t.Errorf("Expected ErrCostOverflow, got %v", err)
	}
}

func TestCompose_Admission(t *testing.T) {
	g := storagetest.Scenario()
	c := NewComposer(nil).WithAdmission(func(e *storage.Edge) bool { return e.ID != "C-D" })

	if _, err := c.Compose(g, scenarioSteps()); !errors.Is(err, ErrNotAdmitted) {
		t.Errorf("Expected ErrNotAdmitted, got %v", err)
	}
	if _, err := c.Compose(g, scenarioSteps()[:3]); err != nil {
		t.Errorf("A-B-C should be admitted: %v", err)
	}
}

func TestRoute_JSON(t *testing.T) {
	g := storagetest.Scenario()
	r, _ := NewComposer(nil).Compose(g, scenarioSteps())

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["total_cost"] != float64(23) {
		t.Errorf("Expected total_cost 23, got %v", decoded["total_cost"])
	}
}

func TestRoute_JSON_GroundFloor(t *testing.T) {
	g, err := storage.NewGraph(storage.NewBatch().
		AddBuilding(&storage.Building{ID: "H", Floors: []int{0, 1}}).
		AddNode(&storage.Node{ID: "G", Type: storage.NodeEntrance, Floor: 0, BuildingID: "H"}).
		AddNode(&storage.Node{ID: "U", Type: storage.NodeRoom, Floor: 1, BuildingID: "H"}).
		AddEdge(&storage.Edge{ID: "G-U", From: "G", To: "U", Cost: storage.CostFromFloat(8), Kind: storage.EdgeStairs}))
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	r, err := NewComposer(nil).Compose(g, StepsFromPath([]string{"G", "U"}, []string{"G-U"}))
	if err != nil {
		t.Fatalf("Compose failed: %v", err)
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded struct {
		Segments []map[string]any `json:"segments"`
		Legs     []map[string]any `json:"legs"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	for name, obj := range map[string]map[string]any{"segment": decoded.Segments[0], "leg": decoded.Legs[0]} {
		if obj["layer"] != string(LayerTransition) {
			t.Errorf("%s layer = %v, want transition", name, obj["layer"])
		}
		if from, ok := obj["from_floor"]; !ok || from != float64(0) {
			t.Errorf("%s from_floor = %v (present %t), want 0", name, from, ok)
		}
		if obj["to_floor"] != float64(1) {
			t.Errorf("%s to_floor = %v, want 1", name, obj["to_floor"])
		}
	}
}
