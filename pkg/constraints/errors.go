package constraints

import "errors"

var (
	ErrInvalidConstraint   = errors.New("invalid constraint")
	ErrConstraintNotFound  = errors.New("constraint not found")
	ErrDuplicateConstraint = errors.New("duplicate constraint")
	ErrUnknownTarget       = errors.New("constraint target not found")
	ErrStaleSet            = errors.New("staged constraint set is stale")
)
