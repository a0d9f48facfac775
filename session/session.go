// Package session implements the Session Manager (spec.md §4.9, C9):
// tracks per-connection state, flips isInitialized on the initialize
// handshake, and evicts idle sessions. The pluggable-backend shape
// (Manager interface, memory/JWT/Redis implementations) is adapted from
// the teacher's SessionManager interface (session_jwt.go,
// session_redis.go) — generalized from protocol-version/tool-mode fields
// to the full Session record spec.md §3 describes.
package session

import (
	"context"
	"time"
)

// Session is the per-connection record spec.md §3 defines.
type Session struct {
	ID             string
	Transport      string
	IsInitialized  bool
	CreatedAt      time.Time
	LastActivityAt time.Time
	ClientInfo     map[string]interface{}
	AuthToken      string
}

// Manager is the pluggable session store interface. Implementations:
// Memory (default, in-process), JWT (stateless), Redis (distributed,
// optional).
type Manager interface {
	// Create starts a new session for transport and returns it.
	Create(ctx context.Context, transport string) (*Session, error)

	// Get returns a session by id. ok is false if unknown or expired.
	Get(ctx context.Context, id string) (sess *Session, ok bool, err error)

	// Initialize flips isInitialized and stores clientInfo, per the
	// initialize handshake.
	Initialize(ctx context.Context, id string, clientInfo map[string]interface{}) error

	// Touch refreshes lastActivityAt. Every non-initialize inbound
	// request calls this first, per spec.md §4.9.
	Touch(ctx context.Context, id string) error

	// Delete removes a session explicitly (client terminate).
	Delete(ctx context.Context, id string) error

	// Sweep evicts sessions idle longer than idleTimeout and reports
	// how many were removed.
	Sweep(ctx context.Context, idleTimeout time.Duration) (evicted int, err error)
}
