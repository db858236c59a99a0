package navigator

import (
	"errors"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/metrics"
	"github.com/dd0wney/cluso-navigator/pkg/route"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
)

// ErrClosed is returned by queries submitted after Close.
var ErrClosed = errors.New("navigator is closed")

// Config configures a Navigator
type Config struct {
	Workers           int           // 0 = runtime.NumCPU()
	DefaultTimeout    time.Duration // 0 = 5s
	TransitionPenalty storage.Cost
	Strategy          algorithms.Strategy
	MaxExpansions     int
	Location          *time.Location // campus time zone; nil = UTC
	StrictTopology    bool

	Logger  logging.Logger
	Metrics *metrics.Registry // nil disables metrics
}

// DefaultConfig returns a configuration suitable for tests and small campuses.
func DefaultConfig() Config {
	return Config{
		DefaultTimeout: 5 * time.Second,
		Strategy:       algorithms.StrategyAStar,
		Location:       time.UTC,
	}
}

// View is an immutable pairing of a graph snapshot and the constraint set
// that was published with it. Queries evaluate against one View throughout.
type View struct {
	Graph       *storage.Graph
	Constraints *constraints.Set
	Filter      *constraints.Filter
}

// Request is a single route query.
type Request struct {
	OriginID  string
	DestID    string
	QueryTime time.Time // zero = now
	Requester constraints.RequesterContext
	Timeout   time.Duration // zero = Config.DefaultTimeout
}

// Result pairs a batch entry with its outcome.
type Result struct {
	Route *route.Route
	Err   error
}

// NearestRequest asks for the cheapest reachable node accepted by Match.
type NearestRequest struct {
	OriginID  string
	Match     algorithms.NodeMatcher
	QueryTime time.Time
	Requester constraints.RequesterContext
	Timeout   time.Duration
}

// ReachRequest asks for every node within Budget of OriginID.
type ReachRequest struct {
	OriginID   string
	Budget     storage.Cost
	MaxResults int
	QueryTime  time.Time
	Requester  constraints.RequesterContext
	Timeout    time.Duration
}

// IngestResult describes a committed ingestion.
type IngestResult struct {
	ID                string              `json:"id"`
	Mode              ingest.Mode         `json:"mode"`
	GraphVersion      uint64              `json:"graph_version"`
	ConstraintVersion uint64              `json:"constraint_version"`
	Nodes             int                 `json:"nodes"`
	Edges             int                 `json:"edges"`
	Buildings         int                 `json:"buildings"`
	Constraints       int                 `json:"constraints"`
	Violations        []storage.Violation `json:"violations,omitempty"`
	Duration          time.Duration       `json:"duration"`
}

// TopologyReport summarizes structural problems in the current graph.
type TopologyReport struct {
	GraphVersion uint64              `json:"graph_version"`
	Violations   []storage.Violation `json:"violations"`
	Errors       int                 `json:"errors"`
	Warnings     int                 `json:"warnings"`
	// OneWayTraps lists nodes that can be entered but not left back to
	// the rest of the campus through directed edges.
	OneWayTraps []string `json:"one_way_traps,omitempty"`
	Components  int      `json:"components"`
}

// Stats is a point-in-time view of the navigator.
type Stats struct {
	GraphVersion      uint64    `json:"graph_version"`
	ConstraintVersion uint64    `json:"constraint_version"`
	Nodes             int       `json:"nodes"`
	Edges             int       `json:"edges"`
	Buildings         int       `json:"buildings"`
	Constraints       int       `json:"constraints"`
	CommittedAt       time.Time `json:"committed_at"`
	Commits           uint64    `json:"commits"`
	Rejected          uint64    `json:"rejected"`
	Workers           int       `json:"workers"`
	Queued            int       `json:"queued"`
	Active            int64     `json:"active"`
	Completed         uint64    `json:"completed"`
}
