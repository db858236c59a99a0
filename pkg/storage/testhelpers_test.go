package storage

import (
	"testing"
)

// scenarioBatch mirrors storagetest.ScenarioBatch; the storage package cannot import it.
func scenarioBatch() *Batch {
	return NewBatch().
		AddBuilding(&Building{ID: "H", Name: "Hall", Floors: []int{1, 2}}).
		AddNode(&Node{ID: "A", Type: NodeJunction, Position: Point{X: 0, Y: 0}}).
		AddNode(&Node{ID: "B", Type: NodeEntrance, Position: Point{X: 10, Y: 0}, Floor: 1, BuildingID: "H"}).
		AddNode(&Node{ID: "C", Type: NodeRoom, Position: Point{X: 10, Y: 5}, Floor: 1, BuildingID: "H"}).
		AddNode(&Node{ID: "D", Type: NodeRoom, Position: Point{X: 10, Y: 5}, Floor: 2, BuildingID: "H"}).
		AddEdge(&Edge{ID: "A-B", From: "A", To: "B", Cost: CostFromFloat(10)}).
		AddEdge(&Edge{ID: "B-C", From: "B", To: "C", Cost: CostFromFloat(5), Kind: EdgeCorridor}).
		AddEdge(&Edge{ID: "C-D", From: "C", To: "D", Cost: CostFromFloat(8), Kind: EdgeStairs})
}

// testGraphStorage creates a store loaded with the scenario campus
func testGraphStorage(t *testing.T, config ...StorageConfig) *GraphStorage {
	t.Helper()

	var cfg StorageConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	gs := NewGraphStorageWithConfig(cfg)
	if _, err := gs.Apply(scenarioBatch()); err != nil {
		t.Fatalf("Failed to load scenario: %v", err)
	}
	return gs
}

func neighborIDs(ns []Neighbor) []string {
	ids := make([]string, len(ns))
	for i, n := range ns {
		ids[i] = n.NodeID
	}
	return ids
}
