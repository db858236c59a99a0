package storage

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"testing"
)

func TestGraphStorage_Scenario(t *testing.T) {
	gs := testGraphStorage(t)

	stats := gs.GetStatistics()
	if stats.NodeCount != 4 || stats.EdgeCount != 3 || stats.BuildingCount != 1 {
		t.Errorf("Expected 4 nodes, 3 edges, 1 building, got %+v", stats)
	}
	if stats.Version != 1 {
		t.Errorf("Expected version 1, got %d", stats.Version)
	}

	node, err := gs.GetNode("C")
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	if node.Floor != 1 || node.BuildingID != "H" {
		t.Errorf("Unexpected node C: %+v", node)
	}

	edge, err := gs.GetEdge("C-D")
	if err != nil {
		t.Fatalf("GetEdge failed: %v", err)
	}
	if edge.Cost != CostFromFloat(8) {
		t.Errorf("Expected cost 8, got %s", edge.Cost)
	}

	ab, _ := gs.GetEdge("A-B")
	if ab.Kind != EdgeWalkway {
		t.Errorf("Expected empty kind to default to walkway, got %q", ab.Kind)
	}
}

func TestGraphStorage_Neighbors(t *testing.T) {
	gs := testGraphStorage(t)

	ns, err := gs.GetNeighbors("B")
	if err != nil {
		t.Fatalf("GetNeighbors failed: %v", err)
	}
	if got := neighborIDs(ns); !slices.Equal(got, []string{"A", "C"}) {
		t.Errorf("Expected neighbors [A C] sorted by edge, got %v", got)
	}

	_, err = gs.GetNeighbors("missing")
	if !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
	if !IsNotFound(err) {
		t.Error("IsNotFound should match a missing node")
	}
}

func TestGraphStorage_DirectedEdge(t *testing.T) {
	gs := testGraphStorage(t)

	err := gs.AddEdge(&Edge{ID: "D-B", From: "D", To: "B", Cost: CostFromFloat(1), Directed: true, Kind: EdgeElevator})
	if err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}

	dn, _ := gs.GetNeighbors("D")
	if !slices.Contains(neighborIDs(dn), "B") {
		t.Errorf("Expected D to reach B, got %v", neighborIDs(dn))
	}
	bn, _ := gs.GetNeighbors("B")
	if slices.Contains(neighborIDs(bn), "D") {
		t.Errorf("Directed edge D->B must not be walkable from B, got %v", neighborIDs(bn))
	}

	e, _ := gs.GetEdge("D-B")
	if !e.Connects("D", "B") || e.Connects("B", "D") {
		t.Error("Connects should respect direction")
	}
}

func TestGraphStorage_SnapshotIsolation(t *testing.T) {
	gs := testGraphStorage(t)
	before := gs.Snapshot()

	if _, err := gs.Apply(NewBatch().RemoveEdge("C-D")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if _, err := before.GetEdge("C-D"); err != nil {
		t.Errorf("Old snapshot should still see C-D: %v", err)
	}
	if _, err := gs.GetEdge("C-D"); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("New snapshot should not see C-D, got %v", err)
	}
	if gs.Snapshot().Version() != before.Version()+1 {
		t.Errorf("Expected version %d, got %d", before.Version()+1, gs.Snapshot().Version())
	}
}

func TestGraphStorage_StageAndPublish(t *testing.T) {
	gs := testGraphStorage(t)

	staged, err := gs.Stage(NewBatch().AddNode(&Node{ID: "J", Type: NodeJunction}))
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if _, err := gs.GetNode("J"); err == nil {
		t.Fatal("Staged node must not be visible before Publish")
	}

	if err := gs.Publish(staged); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if _, err := gs.GetNode("J"); err != nil {
		t.Errorf("Published node should be visible: %v", err)
	}

	// A second graph staged against the old version is stale.
	stale, err := gs.Stage(NewBatch().AddNode(&Node{ID: "K", Type: NodeJunction}))
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if _, err := gs.Apply(NewBatch().AddNode(&Node{ID: "L", Type: NodeJunction})); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if err := gs.Publish(stale); !errors.Is(err, ErrStaleSnapshot) {
		t.Errorf("Expected ErrStaleSnapshot, got %v", err)
	}
}

func TestGraphStorage_OnCommit(t *testing.T) {
	gs := NewGraphStorage()

	var versions []uint64
	gs.OnCommit(func(g *Graph) {
		versions = append(versions, g.Version())
	})

	if _, err := gs.Apply(scenarioBatch()); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if _, err := gs.Apply(NewBatch().RemoveNode("Z")); err == nil {
		t.Fatal("Expected removal of unknown node to fail")
	}
	if err := gs.AddNode(&Node{ID: "J", Type: NodeJunction}); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}

	if !slices.Equal(versions, []uint64{1, 2}) {
		t.Errorf("Expected listener versions [1 2], got %v", versions)
	}

	stats := gs.GetStatistics()
	if stats.Commits != 2 || stats.Rejected != 1 {
		t.Errorf("Expected 2 commits and 1 rejection, got %+v", stats)
	}
}

func TestGraphStorage_ConcurrentReadsDuringWrites(t *testing.T) {
	gs := testGraphStorage(t)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				g := gs.Snapshot()
				// Every edge in a snapshot must reference nodes in the same snapshot.
				for _, e := range g.Edges() {
					if _, err := g.GetNode(e.From); err != nil {
						errs <- err
						return
					}
					if _, err := g.GetNode(e.To); err != nil {
						errs <- err
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("J%d", i)
		b := NewBatch().
			AddNode(&Node{ID: id, Type: NodeJunction, Position: Point{X: float64(i), Y: 1}}).
			AddEdge(&Edge{ID: "A-" + id, From: "A", To: id, Cost: CostFromFloat(1)})
		if _, err := gs.Apply(b); err != nil {
			t.Fatalf("Apply %d failed: %v", i, err)
		}
		if i%3 == 0 {
			if _, err := gs.Apply(NewBatch().RemoveNode(id)); err != nil {
				t.Fatalf("RemoveNode %d failed: %v", i, err)
			}
		}
	}
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Reader saw an inconsistent snapshot: %v", err)
	}
}

func TestGraph_HeuristicScale(t *testing.T) {
	g, err := NewGraph(scenarioBatch())
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	if g.HeuristicScale() != 1 {
		t.Errorf("Expected scale 1 when every edge costs at least its length, got %v", g.HeuristicScale())
	}

	cheap := NewBatch().
		AddNode(&Node{ID: "X", Type: NodeJunction, Position: Point{X: 0, Y: 0}}).
		AddNode(&Node{ID: "Y", Type: NodeJunction, Position: Point{X: 100, Y: 0}}).
		AddEdge(&Edge{ID: "X-Y", From: "X", To: "Y", Cost: CostFromFloat(25)})
	g, err = NewGraph(cheap)
	if err != nil {
		t.Fatalf("NewGraph failed: %v", err)
	}
	if g.HeuristicScale() != 0.25 {
		t.Errorf("Expected scale 0.25, got %v", g.HeuristicScale())
	}
}

func TestCost(t *testing.T) {
	tests := []struct {
		in   float64
		want Cost
		str  string
	}{
		{10, 10000, "10"},
		{0.5, 500, "0.5"},
		{1.25, 1250, "1.25"},
		{0, 0, "0"},
	}

	for _, tt := range tests {
		c := CostFromFloat(tt.in)
		if c != tt.want {
			t.Errorf("CostFromFloat(%v) = %d, want %d", tt.in, c, tt.want)
		}
		if c.String() != tt.str {
			t.Errorf("Cost(%d).String() = %q, want %q", c, c.String(), tt.str)
		}
	}

	var c Cost
	if err := c.UnmarshalJSON([]byte("2.25")); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if c != 2250 {
		t.Errorf("Expected 2250, got %d", c)
	}
}

func TestCost_AddSaturates(t *testing.T) {
	tests := []struct {
		a, b, want Cost
	}{
		{10, 5, 15},
		{0, 0, 0},
		{MaxCost - 1, 1, MaxCost},
		{MaxCost - 1, 2, MaxCost},
		{MaxCost, MaxEdgeCost, MaxCost},
		{CostFromFloat(5e15), CostFromFloat(5e15), MaxCost},
	}
	for _, tt := range tests {
		if got := tt.a.Add(tt.b); got != tt.want {
			t.Errorf("Cost(%d).Add(%d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
