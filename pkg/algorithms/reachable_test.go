package algorithms

import (
	"context"
	"slices"
	"testing"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/storage/storagetest"
)

func TestReachable(t *testing.T) {
	g := storagetest.Scenario()
	pf := NewPathfinder(DefaultOptions())

	tests := []struct {
		budget float64
		want   []string
	}{
		{0, []string{}},
		{10, []string{"B"}},
		{15, []string{"B", "C"}},
		{100, []string{"B", "C", "D"}},
	}

	for _, tt := range tests {
		res, err := pf.Reachable(context.Background(), g, nil, "A",
			ReachOptions{Budget: storage.CostFromFloat(tt.budget)}, noon, constraints.RequesterContext{})
		if err != nil {
			t.Fatalf("Reachable(%v) failed: %v", tt.budget, err)
		}
		if got := res.Nodes(); !slices.Equal(got, tt.want) {
			t.Errorf("Reachable(%v) = %v, want %v", tt.budget, got, tt.want)
		}
		if res.TotalReachable != len(tt.want) {
			t.Errorf("TotalReachable = %d, want %d", res.TotalReachable, len(tt.want))
		}
	}
}

func TestReachable_MaxResultsAndErrors(t *testing.T) {
	g := storagetest.Scenario()
	pf := NewPathfinder(DefaultOptions())

	res, err := pf.Reachable(context.Background(), g, nil, "A",
		ReachOptions{Budget: storage.CostFromFloat(100), MaxResults: 2}, noon, constraints.RequesterContext{})
	if err != nil {
		t.Fatalf("Reachable failed: %v", err)
	}
	if !slices.Equal(res.Nodes(), []string{"B", "C"}) {
		t.Errorf("Expected the two cheapest nodes, got %v", res.Nodes())
	}

	if _, err := pf.Reachable(context.Background(), g, nil, "A", ReachOptions{Budget: -1}, noon, constraints.RequesterContext{}); err == nil {
		t.Error("Expected error for negative budget")
	}
	if _, err := pf.Reachable(context.Background(), g, nil, "Z", ReachOptions{}, noon, constraints.RequesterContext{}); !storage.IsNotFound(err) {
		t.Errorf("Expected not found, got %v", err)
	}
}
