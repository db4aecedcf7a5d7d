package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Names of the two persisted credentials
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Default lifetimes used when a token carries no exp claim
const (
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenStore persists named tokens with an expiry. GetToken returns "" for a
// missing or expired entry.
type TokenStore interface {
	GetToken(ctx context.Context, name string) (string, error)
	SetToken(ctx context.Context, name, value string, expiresAt time.Time) error
	RemoveToken(ctx context.Context, name string) error
}

// MemoryTokenStore keeps tokens in process memory. Used when no durable store
// is configured and in tests.
type MemoryTokenStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{entries: make(map[string]memoryEntry), now: time.Now}
}

func (m *MemoryTokenStore) GetToken(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[name]
	if !ok {
		return "", nil
	}
	if !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt) {
		delete(m.entries, name)
		return "", nil
	}
	return e.value, nil
}

func (m *MemoryTokenStore) SetToken(_ context.Context, name, value string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[name] = memoryEntry{value: value, expiresAt: expiresAt}
	return nil
}

func (m *MemoryTokenStore) RemoveToken(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, name)
	return nil
}

// tokenExpiry reads the exp claim of a JWT without verifying it. Opaque tokens
// and tokens without exp fall back to now+ttl.
func tokenExpiry(token string, ttl time.Duration, now time.Time) time.Time {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}
	return now.Add(ttl)
}
