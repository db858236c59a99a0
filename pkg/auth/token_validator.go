package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
)

// TokenValidator abstracts token validation so JWTs and API keys can share
// one bearer header.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	Name() string
}

var (
	// ErrNoValidatorMatched is returned when no validator can validate the token
	ErrNoValidatorMatched = errors.New("no validator could validate the token")
	// ErrLevelNotPermitted is returned when a request asks for an access
	// level above what its credentials allow.
	ErrLevelNotPermitted = errors.New("requested access level exceeds credentials")
)

// CompositeTokenValidator chains multiple validators, trying each in order
type CompositeTokenValidator struct {
	validators []TokenValidator
}

// NewCompositeTokenValidator creates a validator that tries multiple validators in order
func NewCompositeTokenValidator(validators ...TokenValidator) *CompositeTokenValidator {
	return &CompositeTokenValidator{validators: validators}
}

// ValidateToken tries each validator in order until one succeeds and
// returns the last error otherwise.
func (c *CompositeTokenValidator) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	if len(c.validators) == 0 {
		return nil, ErrNoValidatorMatched
	}

	var lastErr error
	for _, v := range c.validators {
		claims, err := v.ValidateToken(ctx, token)
		if err == nil {
			return claims, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// Name returns a composite name of all validators
func (c *CompositeTokenValidator) Name() string {
	return "composite"
}

// Len returns the number of chained validators.
func (c *CompositeTokenValidator) Len() int {
	return len(c.validators)
}

// Requester builds the requester context for a request. Claims set the
// ceiling: anonymous callers are public, and requested may lower the level
// but never raise it. LevelNone in requested means "use the ceiling".
func Requester(claims *Claims, requested constraints.AccessLevel, stepFree bool) (constraints.RequesterContext, error) {
	ceiling := constraints.LevelPublic
	rc := constraints.RequesterContext{StepFree: stepFree}
	if claims != nil {
		ceiling = claims.AccessLevel.Effective()
		rc.UserID = claims.UserID
		rc.StepFree = stepFree || claims.StepFree
	}

	switch {
	case requested == constraints.LevelNone:
		rc.AccessLevel = ceiling
	case requested > ceiling:
		return constraints.RequesterContext{}, fmt.Errorf("%w: %s requested, %s allowed", ErrLevelNotPermitted, requested, ceiling)
	default:
		rc.AccessLevel = requested
	}
	return rc, nil
}

type claimsKey struct{}

// WithClaims returns a context carrying claims.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, claims)
}

// ClaimsFromContext returns the claims stored by WithClaims, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	c, _ := ctx.Value(claimsKey{}).(*Claims)
	return c
}
