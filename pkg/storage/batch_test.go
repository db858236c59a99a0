package storage

import (
	"errors"
	"testing"
)

func TestApply_RejectedBatchLeavesGraphUntouched(t *testing.T) {
	tests := []struct {
		name  string
		batch *Batch
		want  error
	}{
		{
			name:  "empty batch",
			batch: NewBatch(),
			want:  ErrEmptyBatch,
		},
		{
			name: "edge to unknown node",
			batch: NewBatch().
				AddNode(&Node{ID: "J", Type: NodeJunction}).
				AddEdge(&Edge{ID: "J-Z", From: "J", To: "Z", Cost: 1}),
			want: ErrInvalidReference,
		},
		{
			name:  "indoor node in unknown building",
			batch: NewBatch().AddNode(&Node{ID: "R", Type: NodeRoom, BuildingID: "X", Floor: 1}),
			want:  ErrInvalidReference,
		},
		{
			name:  "indoor node on missing floor",
			batch: NewBatch().AddNode(&Node{ID: "R", Type: NodeRoom, BuildingID: "H", Floor: 7}),
			want:  ErrInvalidReference,
		},
		{
			name:  "room without building",
			batch: NewBatch().AddNode(&Node{ID: "R", Type: NodeRoom}),
			want:  ErrInvalidReference,
		},
		{
			name:  "junction inside a building",
			batch: NewBatch().AddNode(&Node{ID: "R", Type: NodeJunction, BuildingID: "H", Floor: 1}),
			want:  ErrInvalidValue,
		},
		{
			name:  "unknown node type",
			batch: NewBatch().AddNode(&Node{ID: "R", Type: "portal"}),
			want:  ErrInvalidValue,
		},
		{
			name:  "negative cost",
			batch: NewBatch().AddEdge(&Edge{ID: "X", From: "A", To: "B", Cost: -1}),
			want:  ErrInvalidValue,
		},
		{
			name:  "cost above the edge maximum",
			batch: NewBatch().AddEdge(&Edge{ID: "X", From: "A", To: "B", Cost: MaxEdgeCost + 1}),
			want:  ErrInvalidValue,
		},
		{
			name:  "self loop",
			batch: NewBatch().AddEdge(&Edge{ID: "X", From: "A", To: "A", Cost: 1}),
			want:  ErrInvalidReference,
		},
		{
			name:  "unknown edge kind",
			batch: NewBatch().AddEdge(&Edge{ID: "X", From: "A", To: "B", Cost: 1, Kind: "zipline"}),
			want:  ErrInvalidValue,
		},
		{
			name: "duplicate node in batch",
			batch: NewBatch().
				AddNode(&Node{ID: "J", Type: NodeJunction}).
				AddNode(&Node{ID: "J", Type: NodeJunction}),
			want: ErrDuplicateID,
		},
		{
			name:  "blank node id",
			batch: NewBatch().AddNode(&Node{ID: "  ", Type: NodeJunction}),
			want:  ErrInvalidID,
		},
		{
			name:  "building without floors",
			batch: NewBatch().AddBuilding(&Building{ID: "Q"}),
			want:  ErrInvalidValue,
		},
		{
			name:  "delete unknown edge",
			batch: NewBatch().RemoveEdge("nope"),
			want:  ErrEdgeNotFound,
		},
		{
			name:  "removing a building that still has nodes",
			batch: NewBatch().RemoveBuilding("H"),
			want:  ErrInvalidReference,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gs := testGraphStorage(t)
			before := gs.Snapshot()

			_, err := gs.Apply(tt.batch)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}

			var se *StorageError
			if !errors.As(err, &se) {
				t.Errorf("Expected *StorageError, got %T", err)
			}
			if gs.Snapshot() != before {
				t.Error("Rejected batch must not publish a new snapshot")
			}
			if gs.GetStatistics().Rejected != 1 {
				t.Errorf("Expected 1 rejection, got %d", gs.GetStatistics().Rejected)
			}
		})
	}
}

func TestApply_CascadeNodeDelete(t *testing.T) {
	gs := testGraphStorage(t)

	if _, err := gs.Apply(NewBatch().RemoveNode("C")); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, id := range []string{"B-C", "C-D"} {
		if _, err := gs.GetEdge(id); !errors.Is(err, ErrEdgeNotFound) {
			t.Errorf("Edge %s should be removed with node C, got %v", id, err)
		}
	}
	if _, err := gs.GetEdge("A-B"); err != nil {
		t.Errorf("Edge A-B should survive: %v", err)
	}
	ns, _ := gs.GetNeighbors("D")
	if len(ns) != 0 {
		t.Errorf("D should have no neighbors, got %v", ns)
	}
}

func TestApply_Replace(t *testing.T) {
	gs := testGraphStorage(t)

	b := NewBatch().AddNode(&Node{ID: "J", Type: NodeJunction})
	b.Replace = true
	g, err := gs.Apply(b)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if g.NodeCount() != 1 || g.EdgeCount() != 0 || g.BuildingCount() != 0 {
		t.Errorf("Replace should discard the previous graph, got %d/%d/%d",
			g.NodeCount(), g.EdgeCount(), g.BuildingCount())
	}
	if g.Version() != 2 {
		t.Errorf("Replace should still advance the version, got %d", g.Version())
	}
}

func TestApply_UpsertReplacesEntity(t *testing.T) {
	gs := testGraphStorage(t)

	if err := gs.AddEdge(&Edge{ID: "A-B", From: "A", To: "B", Cost: CostFromFloat(3)}); err != nil {
		t.Fatalf("AddEdge failed: %v", err)
	}
	e, _ := gs.GetEdge("A-B")
	if e.Cost != CostFromFloat(3) {
		t.Errorf("Expected updated cost 3, got %s", e.Cost)
	}
	ns, _ := gs.GetNeighbors("A")
	if len(ns) != 1 || ns[0].Cost != CostFromFloat(3) {
		t.Errorf("Adjacency should carry the updated cost, got %v", ns)
	}
}

func TestApply_InputIsCopied(t *testing.T) {
	gs := NewGraphStorage()
	n := &Node{ID: "J", Type: NodeJunction, Name: "Quad <b>", Tags: []string{"bench", " "}}
	if err := gs.AddNode(n); err != nil {
		t.Fatalf("AddNode failed: %v", err)
	}
	n.Name = "mutated"
	n.Tags[0] = "mutated"

	got, _ := gs.GetNode("J")
	if got.Name != "Quad &lt;b&gt;" {
		t.Errorf("Expected sanitized name, got %q", got.Name)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "bench" {
		t.Errorf("Expected tags [bench], got %v", got.Tags)
	}
}

func TestApply_StrictTopology(t *testing.T) {
	gs := testGraphStorage(t, StorageConfig{StrictTopology: true})

	// Removing the only floor link leaves floor 2 unreachable.
	_, err := gs.Apply(NewBatch().RemoveEdge("C-D"))
	if !errors.Is(err, ErrTopology) {
		t.Fatalf("Expected ErrTopology, got %v", err)
	}
	if !IsRejected(err) {
		t.Error("IsRejected should match a topology error")
	}

	// The same change is accepted when not strict.
	lax := testGraphStorage(t)
	if _, err := lax.Apply(NewBatch().RemoveEdge("C-D")); err != nil {
		t.Errorf("Non-strict store should accept the batch: %v", err)
	}
}
