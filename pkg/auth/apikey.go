package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dd0wney/cluso-navigator/pkg/constraints"
	"golang.org/x/crypto/bcrypt"
)

// KeyPrefix starts every API key. A key reads "nav_<id>_<secret>".
const KeyPrefix = "nav_"

const (
	keyIDLength     = 8  // bytes of random data in the key ID
	keySecretLength = 32 // bytes of random data in the secret
)

var (
	ErrInvalidAPIKey = errors.New("invalid API key")
	ErrDuplicateKey  = errors.New("duplicate API key id")
)

// APIKey is a configured admin key. Only the bcrypt hash of the secret is kept.
type APIKey struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
	Hash string `yaml:"hash" json:"-"`
}

// APIKeyStore validates API keys against bcrypt hashes. Every valid key
// grants the admin role.
type APIKeyStore struct {
	keys map[string]APIKey

	mu       sync.Mutex
	lastUsed map[string]time.Time
}

// NewAPIKeyStore builds a store from configured keys.
func NewAPIKeyStore(keys []APIKey) (*APIKeyStore, error) {
	s := &APIKeyStore{
		keys:     make(map[string]APIKey, len(keys)),
		lastUsed: make(map[string]time.Time),
	}
	for _, k := range keys {
		if k.ID == "" || k.Hash == "" {
			return nil, fmt.Errorf("%w: key %q needs an id and a hash", ErrInvalidAPIKey, k.Name)
		}
		if _, err := bcrypt.Cost([]byte(k.Hash)); err != nil {
			return nil, fmt.Errorf("%w: key %q: %v", ErrInvalidAPIKey, k.ID, err)
		}
		if _, ok := s.keys[k.ID]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateKey, k.ID)
		}
		s.keys[k.ID] = k
	}
	return s, nil
}

// GenerateAPIKey creates a new key. The key string is shown once; only the
// returned APIKey (with its hash) should be stored.
func GenerateAPIKey(name string, cost int) (APIKey, string, error) {
	id, err := randomString(keyIDLength)
	if err != nil {
		return APIKey{}, "", err
	}
	secret, err := randomString(keySecretLength)
	if err != nil {
		return APIKey{}, "", err
	}
	// IDs must not contain the separator.
	id = strings.ReplaceAll(id, "_", "-")

	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return APIKey{}, "", fmt.Errorf("failed to hash API key: %w", err)
	}
	return APIKey{ID: id, Name: name, Hash: string(hash)}, KeyPrefix + id + "_" + secret, nil
}

func parseKey(key string) (id, secret string, ok bool) {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok {
		return "", "", false
	}
	id, secret, ok = strings.Cut(rest, "_")
	return id, secret, ok && id != "" && secret != ""
}

// Validate checks key and returns its metadata.
func (s *APIKeyStore) Validate(key string) (*APIKey, error) {
	id, secret, ok := parseKey(key)
	if !ok {
		return nil, ErrInvalidAPIKey
	}
	k, found := s.keys[id]
	if !found {
		return nil, ErrInvalidAPIKey
	}
	if err := bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(secret)); err != nil {
		return nil, ErrInvalidAPIKey
	}

	s.mu.Lock()
	s.lastUsed[id] = time.Now()
	s.mu.Unlock()
	return &k, nil
}

// ValidateToken accepts an API key in place of a bearer token.
func (s *APIKeyStore) ValidateToken(_ context.Context, token string) (*Claims, error) {
	k, err := s.Validate(token)
	if err != nil {
		return nil, err
	}
	return &Claims{
		UserID:      "apikey:" + k.ID,
		Username:    k.Name,
		Role:        RoleAdmin,
		AccessLevel: constraints.LevelAdmin,
	}, nil
}

// Name returns the validator name for logging.
func (s *APIKeyStore) Name() string {
	return "api-key"
}

// Len returns the number of configured keys.
func (s *APIKeyStore) Len() int {
	return len(s.keys)
}

// LastUsed returns when key id last validated, or the zero time.
func (s *APIKeyStore) LastUsed(id string) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed[id]
}

func randomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
