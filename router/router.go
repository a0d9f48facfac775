// Package router implements the MCP Server & Router (spec.md §4.11, C11):
// the top-level JSON-RPC dispatcher that wires every other component
// together — session lifecycle, the Gate Controller's filtered view,
// built-in tools, and the Proxy Service for backend-owned tools. It is
// adapted from the teacher's Server (mcp.go) — same HandleRequest /
// handleInitialize / handleToolsList / handleToolsCall dispatch shape —
// generalized from a single static tool map to the gate-backed active set.
package router

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/toolgate/toolgate/discovery"
	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/filter"
	"github.com/toolgate/toolgate/gate"
	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/proxy"
	"github.com/toolgate/toolgate/repository"
	"github.com/toolgate/toolgate/session"
)

// NotifyFunc is called after a state change that should trigger
// notifications/tools.listChanged, once the change is visible to
// subsequent tools/list calls, per spec.md §5's ordering guarantee.
type NotifyFunc func(ctx context.Context)

// Router dispatches inbound JSON-RPC methods to the right component.
type Router struct {
	ServerInfo protocol.ServerInfo

	Gate     *gate.Controller
	Repo     *repository.Repository
	Proxy    *proxy.Service
	Sessions session.Manager
	Gating   *discovery.GatingService
	Bus      *event.Bus

	Notify NotifyFunc
	Log    zerolog.Logger
}

// Handle dispatches a single inbound request for sessionID and returns the
// response to write back. Notifications (IsNotification()) have no
// response and should not be passed here; callers filter those upstream.
func (r *Router) Handle(ctx context.Context, sessionID string, req *protocol.Request) *protocol.Response {
	if req.Method != "initialize" {
		sess, ok, err := r.Sessions.Get(ctx, sessionID)
		if err != nil || !ok || !sess.IsInitialized {
			return protocol.ErrorResponse(req.ID, protocol.ErrCodeNotInitialized, "Not initialized", nil)
		}
		_ = r.Sessions.Touch(ctx, sessionID)
	}

	switch req.Method {
	case "initialize":
		return r.handleInitialize(ctx, sessionID, req)
	case "tools/list":
		return r.handleToolsList(ctx, req)
	case "tools/call":
		return r.handleToolsCall(ctx, req)
	default:
		r.Log.Debug().Str("method", req.Method).Msg("method not found")
		return protocol.ErrorResponse(req.ID, protocol.ErrCodeMethodNotFound, "Method not found", nil)
	}
}

func (r *Router) handleInitialize(ctx context.Context, sessionID string, req *protocol.Request) *protocol.Response {
	if err := r.Sessions.Initialize(ctx, sessionID, nil); err != nil {
		return protocol.ErrorResponse(req.ID, protocol.ErrCodeInternalError, "Initialize failed", err.Error())
	}

	result := protocol.InitializeResult{
		ProtocolVersion: protocol.ProtocolVersion{
			Major: protocol.ProtocolVersionMajor,
			Minor: protocol.ProtocolVersionMinor,
			Patch: protocol.ProtocolVersionPatch,
		},
		Capabilities: protocol.DefaultCapabilities(),
		ServerInfo:   r.ServerInfo,
		SessionID:    sessionID,
	}
	return protocol.ResultResponse(req.ID, result)
}

func (r *Router) handleToolsList(ctx context.Context, req *protocol.Request) *protocol.Response {
	entries := make([]protocol.ToolListEntry, 0, len(builtinTools))
	for _, t := range builtinTools {
		entries = append(entries, protocol.ToolListEntry{Name: t.Name, Description: t.Description})
	}

	active := r.Gate.AvailableTools(filter.Context{})
	for _, t := range active {
		entries = append(entries, protocol.ToolListEntry{Name: t.Name, Description: t.Description})
	}

	return protocol.ResultResponse(req.ID, entries)
}

func (r *Router) handleToolsCall(ctx context.Context, req *protocol.Request) *protocol.Response {
	var params protocol.ToolCallParams
	if err := decodeParams(req.Params, &params); err != nil {
		return protocol.ErrorResponse(req.ID, protocol.ErrCodeInvalidParams, "Invalid params", err.Error())
	}

	if handler, ok := builtinHandlers[params.Name]; ok {
		result, err := handler(ctx, r, params.Arguments)
		if err != nil {
			r.Log.Warn().Err(err).Str("tool", params.Name).Msg("builtin tool call failed")
			return protocol.ErrorResponse(req.ID, protocol.CodeFor(err), err.Error(), nil)
		}
		return protocol.ResultResponse(req.ID, result)
	}

	result, err := r.Proxy.Call(ctx, params.Name, params.Arguments)
	if err != nil {
		r.Log.Warn().Err(err).Str("tool", params.Name).Msg("tool call failed")
		return protocol.ErrorResponse(req.ID, protocol.CodeFor(err), err.Error(), nil)
	}
	return protocol.ResultResponse(req.ID, result)
}

func decodeParams(raw interface{}, target interface{}) error {
	encoded, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, target)
}

func (r *Router) emitListChanged(ctx context.Context) {
	if r.Notify != nil {
		r.Notify(ctx)
	}
}

func filterContextFrom(args map[string]interface{}) filter.Context {
	taskType, _ := args["taskType"].(string)
	return filter.Context{TaskType: taskType}
}
