// Package snapshot persists committed campus graphs as compressed documents.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/ingest"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/golang/snappy"
)

var (
	ErrCorrupt    = errors.New("snapshot is corrupt")
	ErrNoSnapshot = errors.New("no snapshot found")
)

// Format: [magic:8][checksum:4][snappy(json)]
var magic = []byte("NAVSNAP1")

const headerSize = 12

// Snapshot is a committed view of the graph and its constraints.
type Snapshot struct {
	GraphVersion      uint64           `json:"graph_version"`
	ConstraintVersion uint64           `json:"constraint_version"`
	CreatedAt         time.Time        `json:"created_at"`
	Document          *ingest.Document `json:"document"`
}

// New captures g and set.
func New(g *storage.Graph, set *constraints.Set) *Snapshot {
	s := &Snapshot{
		GraphVersion: g.Version(),
		CreatedAt:    time.Now().UTC(),
		Document:     ingest.FromGraph(g, set),
	}
	if set != nil {
		s.ConstraintVersion = set.Version()
	}
	return s
}

// Name is the object name a snapshot is stored under. Names sort by version.
func (s *Snapshot) Name() string {
	return fmt.Sprintf("graph-%020d.snap", s.GraphVersion)
}

// VersionFromName parses the graph version out of a snapshot name.
func VersionFromName(name string) (uint64, bool) {
	base := name[strings.LastIndexByte(name, '/')+1:]
	if !strings.HasPrefix(base, "graph-") || !strings.HasSuffix(base, ".snap") {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimPrefix(base, "graph-"), ".snap"), 10, 64)
	return v, err == nil
}

// Encode serializes and compresses a snapshot.
func Encode(s *Snapshot) ([]byte, error) {
	if s == nil || s.Document == nil {
		return nil, errors.New("snapshot has no document")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	compressed := snappy.Encode(nil, data)
	out := make([]byte, headerSize, headerSize+len(compressed))
	copy(out, magic)
	binary.BigEndian.PutUint32(out[8:], crc32.ChecksumIEEE(compressed))
	return append(out, compressed...), nil
}

// Decode verifies, decompresses and validates a snapshot.
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < headerSize || !bytes.Equal(data[:8], magic) {
		return nil, fmt.Errorf("%w: bad header", ErrCorrupt)
	}
	compressed := data[headerSize:]
	if crc32.ChecksumIEEE(compressed) != binary.BigEndian.Uint32(data[8:]) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	s := &Snapshot{}
	if err := json.Unmarshal(raw, s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if s.Document == nil {
		return nil, fmt.Errorf("%w: missing document", ErrCorrupt)
	}
	if err := s.Document.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return s, nil
}
