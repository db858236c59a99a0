package api

import (
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// API Request/Response Types

// ErrorResponse is the body of every non-2xx JSON response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// BatchRouteResult is one entry of a batch response. Exactly one of Route
// and Error is set.
type BatchRouteResult struct {
	Index int            `json:"index"`
	Route *route.Route   `json:"route,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// BatchRouteResponse preserves request order
type BatchRouteResponse struct {
	Results   []BatchRouteResult `json:"results"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

// NodeResponse is a node with its building name resolved
type NodeResponse struct {
	*storage.Node
	BuildingName string `json:"building_name,omitempty"`
}

// NeighborResponse is one traversable neighbor
type NeighborResponse struct {
	EdgeID string       `json:"edge_id"`
	NodeID string       `json:"node_id"`
	Cost   storage.Cost `json:"cost"`
}

// NeighborsResponse lists the neighbors the requester may reach now
type NeighborsResponse struct {
	NodeID    string             `json:"node_id"`
	At        time.Time          `json:"at"`
	Neighbors []NeighborResponse `json:"neighbors"`
}

// ReachableNode is a node within the budget
type ReachableNode struct {
	NodeID string       `json:"node_id"`
	Cost   storage.Cost `json:"cost"`
}

// ReachableResponse lists reachable nodes, cheapest first
type ReachableResponse struct {
	Origin         string          `json:"origin"`
	Budget         storage.Cost    `json:"budget"`
	Nodes          []ReachableNode `json:"nodes"`
	TotalReachable int             `json:"total_reachable"`
}

// EdgeResponse is an edge with the constraints attached to it
type EdgeResponse struct {
	*storage.Edge
	Constraints []*constraints.Constraint `json:"constraints,omitempty"`
}

// TraversableResponse explains whether an edge may be walked
type TraversableResponse struct {
	EdgeID      string                    `json:"edge_id"`
	At          time.Time                 `json:"at"`
	AccessLevel constraints.AccessLevel   `json:"access_level"`
	Traversable bool                      `json:"traversable"`
	BlockedBy   []*constraints.Constraint `json:"blocked_by,omitempty"`
}

// BuildingsResponse lists every building
type BuildingsResponse struct {
	Buildings []*storage.Building `json:"buildings"`
	Count     int                 `json:"count"`
}

// ConstraintsResponse lists the active constraint set
type ConstraintsResponse struct {
	Version     uint64                    `json:"version"`
	Constraints []*constraints.Constraint `json:"constraints"`
}

// SnapshotResponse describes a saved snapshot
type SnapshotResponse struct {
	Name              string `json:"name"`
	GraphVersion      uint64 `json:"graph_version"`
	ConstraintVersion uint64 `json:"constraint_version"`
	Bytes             int    `json:"bytes"`
	Pruned            int    `json:"pruned"`
}

// IngestResponse reports a committed ingestion and any snapshot saved after it
type IngestResponse struct {
	*navigator.IngestResult
	Snapshot *SnapshotResponse `json:"snapshot,omitempty"`
}
