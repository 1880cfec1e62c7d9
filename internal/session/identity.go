package session

import (
	"context"
	"sync"
	"time"
)

// IdentityStore remembers which user was signed in across restarts. It is
// read once at Start and written on login and logout.
type IdentityStore interface {
	CurrentUser(ctx context.Context) (string, error)
	SetCurrentUser(ctx context.Context, userID string) error
	ClearCurrentUser(ctx context.Context) error
	Close() error
}

// LoginLimiter throttles login attempts. Identity stores that also implement
// it (the redis client does) rate limit Login per email.
type LoginLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// MemoryIdentity keeps the current user id for the life of the process.
type MemoryIdentity struct {
	mu     sync.Mutex
	userID string
}

func NewMemoryIdentity() *MemoryIdentity {
	return &MemoryIdentity{}
}

func (m *MemoryIdentity) CurrentUser(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.userID, nil
}

func (m *MemoryIdentity) SetCurrentUser(_ context.Context, userID string) error {
	m.mu.Lock()
	m.userID = userID
	m.mu.Unlock()
	return nil
}

func (m *MemoryIdentity) ClearCurrentUser(context.Context) error {
	m.mu.Lock()
	m.userID = ""
	m.mu.Unlock()
	return nil
}

func (m *MemoryIdentity) Close() error { return nil }
