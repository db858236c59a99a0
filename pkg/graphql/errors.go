package graphql

import (
	"errors"

	"github.com/dd0wney/cluso-navigator/pkg/algorithms"
	"github.com/dd0wney/cluso-navigator/pkg/auth"
	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/dd0wney/cluso-navigator/pkg/navigator"
	"github.com/dd0wney/cluso-navigator/pkg/storage"
	"github.com/dd0wney/cluso-navigator/pkg/validation"
)

// Error codes reported in extensions.code.
const (
	CodeValidation  = "VALIDATION"
	CodeNotFound    = "NOT_FOUND"
	CodeNoPath      = "NO_PATH"
	CodeTimeout     = "TIMEOUT"
	CodeForbidden   = "FORBIDDEN"
	CodeUnavailable = "UNAVAILABLE"
	CodeInternal    = "INTERNAL"
)

// codedError carries an error code to the response through graphql-go's
// ExtendedError interface.
type codedError struct {
	err  error
	code string
}

func (e *codedError) Error() string { return e.err.Error() }

func (e *codedError) Unwrap() error { return e.err }

func (e *codedError) Extensions() map[string]any {
	return map[string]any{"code": e.code}
}

func coded(err error) error {
	return &codedError{err: err, code: Code(err)}
}

// Code classifies a navigator error.
func Code(err error) string {
	switch {
	case errors.Is(err, validation.ErrValidation), errors.Is(err, constraints.ErrInvalidConstraint):
		return CodeValidation
	case storage.IsNotFound(err):
		return CodeNotFound
	case algorithms.IsTimeout(err):
		return CodeTimeout
	case algorithms.IsNoPath(err):
		return CodeNoPath
	case errors.Is(err, auth.ErrLevelNotPermitted):
		return CodeForbidden
	case errors.Is(err, navigator.ErrClosed):
		return CodeUnavailable
	}
	return CodeInternal
}
