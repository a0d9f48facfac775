package main

import (
	"context"
	"sync"

	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/router"
	"github.com/toolgate/toolgate/session"
	"github.com/toolgate/toolgate/transport"
)

// httpRequestHandler resolves the session for each inbound call from the
// Mcp-Session-Id header transport.WithSessionID attached to ctx, creating a
// fresh session on an initialize call that arrives without one. Every other
// method with no recognized session falls through to the router's own
// not-initialized rejection.
func httpRequestHandler(r *router.Router, sessions session.Manager) transport.RequestHandler {
	return func(ctx context.Context, req *protocol.Request) *protocol.Response {
		sid, _ := transport.SessionIDFromContext(ctx)
		if req.Method == "initialize" && sid == "" {
			sess, err := sessions.Create(ctx, "http")
			if err != nil {
				return protocol.ErrorResponse(req.ID, protocol.ErrCodeInternalError, "create session failed", err.Error())
			}
			sid = sess.ID
		}
		if sid == "" {
			return protocol.ErrorResponse(req.ID, protocol.ErrCodeNotInitialized, "Not initialized", nil)
		}
		return r.Handle(ctx, sid, req)
	}
}

// stickyRequestHandler backs single-connection transports (stdio,
// WebSocket): there is no per-request header to carry a session id, so the
// session created on that connection's first initialize call is reused for
// every later request on it.
func stickyRequestHandler(r *router.Router, sessions session.Manager, transportName string) transport.RequestHandler {
	var mu sync.Mutex
	var sid string

	return func(ctx context.Context, req *protocol.Request) *protocol.Response {
		mu.Lock()
		current := sid
		mu.Unlock()

		if req.Method == "initialize" && current == "" {
			sess, err := sessions.Create(ctx, transportName)
			if err != nil {
				return protocol.ErrorResponse(req.ID, protocol.ErrCodeInternalError, "create session failed", err.Error())
			}
			mu.Lock()
			sid = sess.ID
			mu.Unlock()
			current = sess.ID
		}

		if current == "" {
			return protocol.ErrorResponse(req.ID, protocol.ErrCodeNotInitialized, "Not initialized", nil)
		}
		return r.Handle(ctx, current, req)
	}
}
