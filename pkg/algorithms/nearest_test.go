package algorithms

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/storage/storagetest"
)

func TestFindNearest(t *testing.T) {
	g := storagetest.Scenario()
	pf := NewPathfinder(DefaultOptions())

	path, err := pf.FindNearest(context.Background(), g, nil, "A", MatchType(storage.NodeRoom), noon, constraints.RequesterContext{})
	if err != nil {
		t.Fatalf("FindNearest failed: %v", err)
	}
	if !slices.Equal(path.NodeIDs, []string{"A", "B", "C"}) || path.Cost != storage.CostFromFloat(15) {
		t.Errorf("Expected A-B-C at cost 15, got %v at %s", path.NodeIDs, path.Cost)
	}

	path, err = pf.FindNearest(context.Background(), g, nil, "B", MatchType(storage.NodeEntrance), noon, constraints.RequesterContext{})
	if err != nil {
		t.Fatalf("FindNearest failed: %v", err)
	}
	if len(path.NodeIDs) != 1 || path.Cost != 0 {
		t.Errorf("Origin matching itself should be a zero-cost path, got %+v", path)
	}
}

func TestFindNearest_Filtered(t *testing.T) {
	g := storagetest.Scenario()
	pf := NewPathfinder(DefaultOptions())
	f := constraints.NewFilter(g, mustSet(t, &constraints.Constraint{ID: "x", Kind: constraints.KindClosure, EdgeID: "B-C"}), nil)

	_, err := pf.FindNearest(context.Background(), g, f, "A", MatchAll(MatchType(storage.NodeRoom), MatchBuilding("H")), noon, constraints.RequesterContext{})
	if !errors.Is(err, ErrNoPath) {
		t.Errorf("Expected ErrNoPath when every room is cut off, got %v", err)
	}

	_, err = pf.FindNearest(context.Background(), g, nil, "Z", MatchTag("cafe"), noon, constraints.RequesterContext{})
	if !errors.Is(err, storage.ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestMatchers(t *testing.T) {
	n := &storage.Node{ID: "x", Type: storage.NodeElevator, BuildingID: "H", Tags: []string{"lift"}}
	if !MatchTag("lift")(n) || MatchTag("cafe")(n) {
		t.Error("MatchTag mismatch")
	}
	if !MatchAll(MatchType(storage.NodeElevator), MatchBuilding("H"))(n) {
		t.Error("MatchAll should match")
	}
	if MatchAll(MatchType(storage.NodeElevator), MatchBuilding("K"))(n) {
		t.Error("MatchAll should require every matcher")
	}
}
