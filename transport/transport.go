// Package transport implements the three wire transports of spec.md §4.8,
// C8: stdio, HTTP, and WebSocket. All three satisfy the common Transport
// capability interface so the router and upstream packages can treat them
// interchangeably. The request/response plumbing — correlate by id,
// reject late responses, timeout pending calls — is adapted from the
// teacher's Client.sendRequest (client.go).
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/toolgate/toolgate/protocol"
)

// RequestHandler processes an inbound request and returns its response.
type RequestHandler func(ctx context.Context, req *protocol.Request) *protocol.Response

// NotificationHandler processes an inbound notification (no response).
type NotificationHandler func(ctx context.Context, notif *protocol.Request)

// Health summarizes a transport's operating state for diagnostics.
type Health struct {
	Connected bool
	LastError string
}

// Transport is the capability interface every wire format implements, per
// spec.md §4.8.
type Transport interface {
	Start(ctx context.Context) error
	Stop() error
	OnRequest(handler RequestHandler)
	OnNotification(handler NotificationHandler)
	SendRequest(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error)
	SendNotification(ctx context.Context, notif *protocol.Request) error
	Health() Health
}

// ErrCorrelationRequired is returned by SendRequest on transports that
// cannot originate correlated outbound requests without an external
// correlation layer (plain stdio, per spec.md §4.8).
var ErrCorrelationRequired = errors.New("correlation required")

type sessionIDKey struct{}

// WithSessionID attaches a session id to ctx so a RequestHandler can
// recover which session.Manager record an inbound call belongs to. Only the
// HTTP transport attaches one, from the Mcp-Session-Id header; stdio and
// WebSocket attach none, so handlers on those single-connection transports
// track their session themselves.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, id)
}

// SessionIDFromContext recovers the id WithSessionID attached, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey{}).(string)
	return id, ok && id != ""
}
