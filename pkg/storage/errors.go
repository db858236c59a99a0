package storage

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrNodeNotFound     = errors.New("node not found")
	ErrEdgeNotFound     = errors.New("edge not found")
	ErrBuildingNotFound = errors.New("building not found")
	ErrInvalidID        = errors.New("invalid ID")
	ErrDuplicateID      = errors.New("duplicate ID")
	ErrInvalidReference = errors.New("invalid reference")
	ErrInvalidValue     = errors.New("invalid value")
	ErrTopology         = errors.New("topology violation")
	ErrStaleSnapshot    = errors.New("staged graph is stale")
	ErrEmptyBatch       = errors.New("batch is empty")
)

// StorageError provides structured error information for storage operations.
type StorageError struct {
	Op      string // Operation that failed (e.g., "AddEdge", "Apply")
	Entity  string // Entity type (e.g., "node", "edge", "building")
	ID      string // Entity ID (if applicable)
	Field   string // Field name
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	if e.ID != "" {
		if e.Field != "" {
			return fmt.Sprintf("%s %s %q (field %s): %v", e.Op, e.Entity, e.ID, e.Field, e.Cause)
		}
		if e.Context != "" {
			return fmt.Sprintf("%s %s %q (%s): %v", e.Op, e.Entity, e.ID, e.Context, e.Cause)
		}
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ErrorBuilder provides a fluent interface for building StorageErrors.
type ErrorBuilder struct {
	err StorageError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: StorageError{Op: op}}
}

// Node sets the entity to "node" with the given ID.
func (b *ErrorBuilder) Node(id string) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Edge sets the entity to "edge" with the given ID.
func (b *ErrorBuilder) Edge(id string) *ErrorBuilder {
	b.err.Entity = "edge"
	b.err.ID = id
	return b
}

// Building sets the entity to "building" with the given ID.
func (b *ErrorBuilder) Building(id string) *ErrorBuilder {
	b.err.Entity = "building"
	b.err.ID = id
	return b
}

// Batch sets the entity to "batch".
func (b *ErrorBuilder) Batch() *ErrorBuilder {
	b.err.Entity = "batch"
	return b
}

// Field sets the field name.
func (b *ErrorBuilder) Field(name string) *ErrorBuilder {
	b.err.Field = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Build returns the constructed StorageError.
func (b *ErrorBuilder) Build() *StorageError {
	return &b.err
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// NodeNotFoundError creates a node not found error.
func NodeNotFoundError(nodeID string) error {
	return NewError("get").Node(nodeID).Cause(ErrNodeNotFound).Err()
}

// EdgeNotFoundError creates an edge not found error.
func EdgeNotFoundError(edgeID string) error {
	return NewError("get").Edge(edgeID).Cause(ErrEdgeNotFound).Err()
}

// BuildingNotFoundError creates a building not found error.
func BuildingNotFoundError(buildingID string) error {
	return NewError("get").Building(buildingID).Cause(ErrBuildingNotFound).Err()
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrEdgeNotFound) || errors.Is(err, ErrBuildingNotFound)
}

// IsRejected returns true if the error rejected an update batch.
func IsRejected(err error) bool {
	return errors.Is(err, ErrInvalidReference) || errors.Is(err, ErrDuplicateID) ||
		errors.Is(err, ErrInvalidValue) || errors.Is(err, ErrInvalidID) || errors.Is(err, ErrTopology)
}
