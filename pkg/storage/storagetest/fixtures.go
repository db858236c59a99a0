// Package storagetest provides campus graph fixtures for tests.
package storagetest

import (
	"fmt"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// Scenario edge IDs.
const (
	EdgeAB = "A-B"
	EdgeBC = "B-C"
	EdgeCD = "C-D"
)

// ScenarioBatch returns the reference campus: outdoor junction A, entrance B
// and room C on floor 1 of building H, room D on floor 2. The cheapest route
// from A to D is A-B-C-D with cost 23.
func ScenarioBatch() *storage.Batch {
	return storage.NewBatch().
		AddBuilding(&storage.Building{ID: "H", Name: "Hall", Floors: []int{1, 2}}).
		AddNode(&storage.Node{ID: "A", Type: storage.NodeJunction, Position: storage.Point{X: 0, Y: 0}}).
		AddNode(&storage.Node{ID: "B", Type: storage.NodeEntrance, Position: storage.Point{X: 10, Y: 0}, Floor: 1, BuildingID: "H"}).
		AddNode(&storage.Node{ID: "C", Type: storage.NodeRoom, Position: storage.Point{X: 10, Y: 5}, Floor: 1, BuildingID: "H"}).
		AddNode(&storage.Node{ID: "D", Type: storage.NodeRoom, Position: storage.Point{X: 10, Y: 5}, Floor: 2, BuildingID: "H"}).
		AddEdge(&storage.Edge{ID: EdgeAB, From: "A", To: "B", Cost: storage.CostFromFloat(10)}).
		AddEdge(&storage.Edge{ID: EdgeBC, From: "B", To: "C", Cost: storage.CostFromFloat(5), Kind: storage.EdgeCorridor}).
		AddEdge(&storage.Edge{ID: EdgeCD, From: "C", To: "D", Cost: storage.CostFromFloat(8), Kind: storage.EdgeStairs})
}

// Scenario builds the reference campus as a standalone graph.
func Scenario() *storage.Graph {
	g, err := storage.NewGraph(ScenarioBatch())
	if err != nil {
		panic(fmt.Sprintf("storagetest: scenario graph: %v", err))
	}
	return g
}

// GridBatch returns a w x h grid of outdoor junctions, spaced 10 m apart,
// joined by undirected walkways costing 10. Nodes are named "x,y".
func GridBatch(w, h int) *storage.Batch {
	b := storage.NewBatch()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			b.AddNode(&storage.Node{
				ID:       GridID(x, y),
				Type:     storage.NodeJunction,
				Position: storage.Point{X: float64(x * 10), Y: float64(y * 10)},
			})
			if x > 0 {
				b.AddEdge(&storage.Edge{
					ID: fmt.Sprintf("h%d,%d", x, y), From: GridID(x-1, y), To: GridID(x, y),
					Cost: storage.CostFromFloat(10),
				})
			}
			if y > 0 {
				b.AddEdge(&storage.Edge{
					ID: fmt.Sprintf("v%d,%d", x, y), From: GridID(x, y-1), To: GridID(x, y),
					Cost: storage.CostFromFloat(10),
				})
			}
		}
	}
	return b
}

// GridID names the grid node at (x, y).
func GridID(x, y int) string {
	return fmt.Sprintf("%d,%d", x, y)
}
