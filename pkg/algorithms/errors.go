package algorithms

import (
	"errors"
	"fmt"
)

var (
	// ErrNoPath means no traversable route exists under the active constraints.
	ErrNoPath = errors.New("no path")
	// ErrTimeout means the search hit its deadline or was canceled.
	ErrTimeout = errors.New("search timed out")
	// ErrSearchLimit means the search expanded MaxExpansions nodes without
	// reaching the destination. It is always reported together with ErrNoPath.
	ErrSearchLimit = errors.New("search expansion limit reached")
)

// PathError records a failed search.
type PathError struct {
	Op          string // "FindPath", "FindNearest", "Reachable"
	Origin      string
	Destination string
	Expanded    int
	Err         error
}

func (e *PathError) Error() string {
	if e.Destination != "" {
		return fmt.Sprintf("%s %s -> %s: %v", e.Op, e.Origin, e.Destination, e.Err)
	}
	return fmt.Sprintf("%s from %s: %v", e.Op, e.Origin, e.Err)
}

// Unwrap returns the underlying cause for error chain support.
func (e *PathError) Unwrap() error {
	return e.Err
}

// IsNoPath returns true if the error means no route exists.
func IsNoPath(err error) bool {
	return errors.Is(err, ErrNoPath)
}

// IsTimeout returns true if the search ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

func limitError() error {
	return fmt.Errorf("%w: %w", ErrNoPath, ErrSearchLimit)
}

func timeoutError(cause error) error {
	return fmt.Errorf("%w: %w", ErrTimeout, cause)
}
