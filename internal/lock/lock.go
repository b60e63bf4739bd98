// Package lock serialises submissions of the same report across requests
// and, with redis, across processes.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHeld means another submission of the same report is in progress.
var ErrHeld = errors.New("lock already held")

// DefaultTTL bounds how long a crashed holder can block a report.
const DefaultTTL = 30 * time.Second

type Locker interface {
	// Acquire takes the lock for name and returns the token needed to release it.
	Acquire(ctx context.Context, name string) (string, error)
	// Release drops the lock if token still owns it.
	Release(ctx context.Context, name, token string) error
	Ping(ctx context.Context) error
}

type entry struct {
	token   string
	expires time.Time
}

// Memory is an in-process Locker.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	locks map[string]entry
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, locks: make(map[string]entry)}
}

func (m *Memory) Acquire(_ context.Context, name string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if held, ok := m.locks[name]; ok && now.Before(held.expires) {
		return "", ErrHeld
	}
	token := uuid.NewString()
	m.locks[name] = entry{token: token, expires: now.Add(m.ttl)}
	return token, nil
}

func (m *Memory) Release(_ context.Context, name, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held, ok := m.locks[name]; ok && held.token == token {
		delete(m.locks, name)
	}
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }
