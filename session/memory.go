package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is the default in-process Manager. It enforces maxSessions by
// evicting the oldest idle session when a new one would exceed the cap —
// "oldest idle wins the eviction race", per spec.md §4.9.
type Memory struct {
	mu          sync.Mutex
	sessions    map[string]*Session
	maxSessions int
}

// NewMemory constructs a Memory manager. maxSessions <= 0 means unbounded.
func NewMemory(maxSessions int) *Memory {
	return &Memory{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
	}
}

func (m *Memory) Create(ctx context.Context, transport string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxSessions > 0 && len(m.sessions) >= m.maxSessions {
		m.evictOldestLocked()
	}

	now := time.Now()
	sess := &Session{
		ID:             uuid.NewString(),
		Transport:      transport,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	m.sessions[sess.ID] = sess
	return sess, nil
}

func (m *Memory) evictOldestLocked() {
	var oldestID string
	var oldestAt time.Time
	first := true
	for id, sess := range m.sessions {
		if first || sess.LastActivityAt.Before(oldestAt) {
			oldestID, oldestAt = id, sess.LastActivityAt
			first = false
		}
	}
	if oldestID != "" {
		delete(m.sessions, oldestID)
	}
}

func (m *Memory) Get(ctx context.Context, id string) (*Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	return sess, ok, nil
}

func (m *Memory) Initialize(ctx context.Context, id string, clientInfo map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.IsInitialized = true
	sess.ClientInfo = clientInfo
	sess.LastActivityAt = time.Now()
	return nil
}

func (m *Memory) Touch(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	sess.LastActivityAt = time.Now()
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *Memory) Sweep(ctx context.Context, idleTimeout time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	evicted := 0
	for id, sess := range m.sessions {
		if now.Sub(sess.LastActivityAt) >= idleTimeout {
			delete(m.sessions, id)
			evicted++
		}
	}
	return evicted, nil
}
