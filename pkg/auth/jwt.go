// Package auth turns bearer tokens and API keys into requester contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrExpiredToken  = errors.New("token has expired")
	ErrInvalidClaims = errors.New("invalid token claims")
	ErrEmptyUserID   = errors.New("userID cannot be empty")
	ErrInvalidRole   = errors.New("invalid role")
	ErrShortSecret   = errors.New("secret must be at least 32 characters")
)

// Valid roles. Admins may ingest maps and edit constraints.
const (
	RoleAdmin  = "admin"
	RoleViewer = "viewer"
)

var validRoles = map[string]bool{
	RoleAdmin:  true,
	RoleViewer: true,
}

const issuer = "cluso-navigator"

// Claims represents JWT claims
type Claims struct {
	UserID      string                  `json:"user_id"`
	Username    string                  `json:"username,omitempty"`
	Role        string                  `json:"role"`
	AccessLevel constraints.AccessLevel `json:"access_level"`
	StepFree    bool                    `json:"step_free,omitempty"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims grant admin endpoints.
func (c *Claims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}

// JWTManager manages JWT token generation and validation
type JWTManager struct {
	secretKey     []byte
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager creates a new JWT manager.
// Returns an error if the secret is shorter than 32 characters.
func NewJWTManager(secret string, tokenDuration time.Duration) (*JWTManager, error) {
	if len(secret) < 32 {
		return nil, ErrShortSecret
	}
	if tokenDuration <= 0 {
		tokenDuration = time.Hour
	}
	return &JWTManager{
		secretKey:     []byte(secret),
		tokenDuration: tokenDuration,
		now:           time.Now,
	}, nil
}

// GenerateToken signs a token for userID with the given role and access level.
func (m *JWTManager) GenerateToken(userID, username, role string, level constraints.AccessLevel) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}
	if !validRoles[role] {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
	if level == constraints.LevelNone {
		level = constraints.LevelPublic
	}

	now := m.now()
	claims := &Claims{
		UserID:      userID,
		Username:    username,
		Role:        role,
		AccessLevel: level,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.tokenDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken validates a JWT token and returns claims.
func (m *JWTManager) ValidateToken(_ context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return m.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpiredToken
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidClaims)
	}
	if !validRoles[claims.Role] {
		return nil, fmt.Errorf("%w: role %q", ErrInvalidClaims, claims.Role)
	}
	return claims, nil
}

// Name returns the validator name for logging.
func (m *JWTManager) Name() string {
	return "jwt-hs256"
}

// TokenDuration returns the configured token lifetime.
func (m *JWTManager) TokenDuration() time.Duration {
	return m.tokenDuration
}
