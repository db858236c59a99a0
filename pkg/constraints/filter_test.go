package constraints

import (
	"errors"
	"testing"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/storage/storagetest"
)

func nightBlock(id, edgeID string) *Constraint {
	return &Constraint{
		ID:     id,
		Kind:   KindBlockedHours,
		EdgeID: edgeID,
		Window: &TimeWindow{Start: mustClock("22:00"), End: mustClock("06:00")},
	}
}

func TestFilter_IsTraversable(t *testing.T) {
	g := storagetest.Scenario()
	set, err := NewSet([]*Constraint{nightBlock("night", storagetest.EdgeCD)})
	if err != nil {
		t.Fatalf("NewSet failed: %v", err)
	}
	f := NewFilter(g, set, nil)

	ok, err := f.IsTraversable(storagetest.EdgeCD, at("23:00", time.Monday), RequesterContext{})
	if err != nil {
		t.Fatalf("IsTraversable failed: %v", err)
	}
	if ok {
		t.Error("C-D should be blocked at 23:00")
	}

	ok, _ = f.IsTraversable(storagetest.EdgeCD, at("12:00", time.Monday), RequesterContext{})
	if !ok {
		t.Error("C-D should be open at 12:00")
	}

	ok, _ = f.IsTraversable(storagetest.EdgeAB, at("23:00", time.Monday), RequesterContext{})
	if !ok {
		t.Error("A-B has no constraint and should be open")
	}

	_, err = f.IsTraversable("nope", at("12:00", time.Monday), RequesterContext{})
	if !errors.Is(err, storage.ErrEdgeNotFound) {
		t.Errorf("Expected ErrEdgeNotFound, got %v", err)
	}
}

func TestFilter_TimeZone(t *testing.T) {
	g := storagetest.Scenario()
	set, _ := NewSet([]*Constraint{nightBlock("night", storagetest.EdgeCD)})
	loc := time.FixedZone("campus", 10*3600)
	f := NewFilter(g, set, loc)

	// 13:00 UTC is 23:00 on campus.
	q := time.Date(2024, 1, 8, 13, 0, 0, 0, time.UTC)
	ok, _ := f.IsTraversable(storagetest.EdgeCD, q, RequesterContext{})
	if ok {
		t.Error("Window must be evaluated in the campus time zone")
	}
	if f.Location() != loc {
		t.Error("Location should be the configured zone")
	}
}

func TestFilter_NodeConstraint(t *testing.T) {
	g := storagetest.Scenario()
	set, _ := NewSet([]*Constraint{{ID: "lab", Kind: KindAccessLevel, NodeID: "C", MinAccessLevel: LevelStudent}})
	f := NewFilter(g, set, nil)
	noon := at("12:00", time.Monday)

	ns, err := f.FilteredNeighbors("B", noon, RequesterContext{})
	if err != nil {
		t.Fatalf("FilteredNeighbors failed: %v", err)
	}
	if len(ns) != 1 || ns[0].NodeID != "A" {
		t.Errorf("Public requester should only reach A from B, got %v", ns)
	}

	ns, _ = f.FilteredNeighbors("B", noon, RequesterContext{AccessLevel: LevelStudent})
	if len(ns) != 2 {
		t.Errorf("Student should reach A and C from B, got %v", ns)
	}

	if _, err := f.FilteredNeighbors("missing", noon, RequesterContext{}); !errors.Is(err, storage.ErrNodeNotFound) {
		t.Errorf("Expected ErrNodeNotFound, got %v", err)
	}
}

func TestFilter_StepFree(t *testing.T) {
	g := storagetest.Scenario()
	f := NewFilter(g, nil, nil)
	noon := at("12:00", time.Monday)

	ok, _ := f.IsTraversable(storagetest.EdgeCD, noon, RequesterContext{StepFree: true})
	if ok {
		t.Error("Stairs edge must be excluded for step-free requesters")
	}
	ok, _ = f.IsTraversable(storagetest.EdgeCD, noon, RequesterContext{})
	if !ok {
		t.Error("Stairs edge should be usable by default")
	}

	blocking, err := f.Blocking(storagetest.EdgeCD, noon, RequesterContext{StepFree: true})
	if err != nil {
		t.Fatalf("Blocking failed: %v", err)
	}
	if len(blocking) != 1 || blocking[0].ID != "step-free" {
		t.Errorf("Expected the step-free rule to be reported, got %v", blocking)
	}
}

func TestFilter_Blocking(t *testing.T) {
	g := storagetest.Scenario()
	set, _ := NewSet([]*Constraint{
		nightBlock("night", storagetest.EdgeCD),
		{ID: "reno", Kind: KindClosure, NodeID: "D"},
	})
	f := NewFilter(g, set, nil)

	blocking, _ := f.Blocking(storagetest.EdgeCD, at("23:00", time.Monday), RequesterContext{})
	if len(blocking) != 2 {
		t.Errorf("Expected two blocking constraints, got %d", len(blocking))
	}
	blocking, _ = f.Blocking(storagetest.EdgeCD, at("12:00", time.Monday), RequesterContext{})
	if len(blocking) != 1 || blocking[0].ID != "reno" {
		t.Errorf("Expected only the node closure at noon, got %v", blocking)
	}
}
