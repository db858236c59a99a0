package replication

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/logging"
	"github.com/dd0wney/cluso-navigator/pkg/metrics"
)

var (
	// ErrStale is returned when a replica receives a view older than the one
	// it has applied.
	ErrStale = errors.New("stale snapshot")
	// ErrDuplicate is returned for a republished view the replica already has.
	ErrDuplicate = errors.New("snapshot already applied")
	// ErrBadMessage is returned for frames that are not snapshot messages.
	ErrBadMessage = errors.New("malformed replication message")
)

// snapshotTopic prefixes every published snapshot; SUB sockets filter on it.
var snapshotTopic = []byte("SNAP:")

// Role names the side of the stream a node is on.
type Role string

const (
	RolePrimary Role = "primary"
	RoleReplica Role = "replica"
)

// Config holds replication configuration
type Config struct {
	// PublishAddr is the snapshot stream address. The primary listens on it
	// and replicas dial it, e.g. "tcp://10.0.0.1:9090" or "inproc://campus".
	PublishAddr string
	// HealthAddr is the optional survey address for replica status.
	HealthAddr string
	NodeID     string

	RepublishInterval time.Duration // resend the latest view for late joiners
	SurveyInterval    time.Duration
	SurveyTimeout     time.Duration
	RecvTimeout       time.Duration
	ApplyTimeout      time.Duration

	Logger  logging.Logger
	Metrics *metrics.Registry
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		PublishAddr:       "tcp://127.0.0.1:9090",
		RepublishInterval: 5 * time.Second,
		SurveyInterval:    2 * time.Second,
		SurveyTimeout:     500 * time.Millisecond,
		RecvTimeout:       time.Second,
		ApplyTimeout:      30 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.RepublishInterval <= 0 {
		c.RepublishInterval = d.RepublishInterval
	}
	if c.SurveyInterval <= 0 {
		c.SurveyInterval = d.SurveyInterval
	}
	if c.SurveyTimeout <= 0 {
		c.SurveyTimeout = d.SurveyTimeout
	}
	if c.RecvTimeout <= 0 {
		c.RecvTimeout = d.RecvTimeout
	}
	if c.ApplyTimeout <= 0 {
		c.ApplyTimeout = d.ApplyTimeout
	}
	if c.Logger == nil {
		c.Logger = logging.NewNopLogger()
	}
	return c
}

// Version orders published views: graph version first, then the version
// of the constraint set published with it.
type Version struct {
	Graph       uint64 `json:"graph"`
	Constraints uint64 `json:"constraints"`
}

// Compare returns -1, 0 or 1.
func (v Version) Compare(o Version) int {
	switch {
	case v.Graph < o.Graph:
		return -1
	case v.Graph > o.Graph:
		return 1
	case v.Constraints < o.Constraints:
		return -1
	case v.Constraints > o.Constraints:
		return 1
	}
	return 0
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Graph, v.Constraints)
}

// Heartbeat is exchanged over the survey socket. The primary sends its own
// state; each replica answers with the version it has applied.
type Heartbeat struct {
	From    string    `json:"from"`
	Role    Role      `json:"role"`
	Version Version   `json:"version"`
	Nodes   int       `json:"nodes"`
	Edges   int       `json:"edges"`
	SentAt  time.Time `json:"sent_at"`
}

// ReplicaStatus is the primary's view of one replica.
type ReplicaStatus struct {
	ReplicaID string    `json:"replica_id"`
	Applied   Version   `json:"applied"`
	LastSeen  time.Time `json:"last_seen"`
	// Lag is the number of graph versions the replica is behind.
	Lag uint64 `json:"lag"`
}

// State is a point-in-time view of replication on this node.
type State struct {
	Role     Role            `json:"role"`
	NodeID   string          `json:"node_id"`
	Version  Version         `json:"version"`
	Primary  string          `json:"primary,omitempty"`
	Replicas []ReplicaStatus `json:"replicas,omitempty"`
	LastSync time.Time       `json:"last_sync,omitempty"`
}

func encodeSnapshotMessage(data []byte) []byte {
	msg := make([]byte, 0, len(snapshotTopic)+len(data))
	msg = append(msg, snapshotTopic...)
	return append(msg, data...)
}

func decodeSnapshotMessage(msg []byte) ([]byte, error) {
	if !bytes.HasPrefix(msg, snapshotTopic) {
		return nil, ErrBadMessage
	}
	return msg[len(snapshotTopic):], nil
}
