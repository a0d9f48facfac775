// Package proxy implements the Proxy Service (spec.md §4.7, C7): it
// validates a tool call's input against the tool's JSON-Schema, dispatches
// to the Client Manager, and wraps any failure in a BackendError. The
// dispatch-then-wrap shape is grounded on the teacher's Client.CallTool
// (client.go), generalized from a single remote server to the upstream
// package's multi-backend ClientManager.
package proxy

import (
	"context"

	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/gate"
	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/upstream"
)

// Dispatcher is the subset of upstream.ClientManager the proxy needs,
// kept as an interface so tests can supply a fake backend.
type Dispatcher interface {
	ExecuteTool(ctx context.Context, backend, toolName string, input map[string]interface{}) (*protocol.ToolCallResult, error)
}

// Repository is the subset of repository.Repository the proxy needs to
// look up a tool's descriptor before validating.
type Repository interface {
	Get(name string) (protocol.Tool, bool)
}

// Service validates and dispatches tool calls.
type Service struct {
	repo       Repository
	dispatcher Dispatcher
	gate       *gate.Controller
	bus        *event.Bus
}

// New constructs a Service. gateController and bus may be nil; a nil gate
// means ensureToolAvailable/markUsed are skipped (tool must already be
// resolvable via repo alone).
func New(repo Repository, dispatcher Dispatcher, gateController *gate.Controller, bus *event.Bus) *Service {
	if bus == nil {
		bus = event.NewBus()
	}
	return &Service{repo: repo, dispatcher: dispatcher, gate: gateController, bus: bus}
}

// Call resolves the named tool (activating its toolset via the gate if it
// is not already active), validates input against its schema, dispatches
// it, and emits a tool.execute.{ok,err} event.
func (s *Service) Call(ctx context.Context, toolName string, input map[string]interface{}) (*protocol.ToolCallResult, error) {
	tool, ok := s.resolveTool(toolName)
	if !ok {
		if s.gate != nil {
			available, err := s.gate.EnsureToolAvailable(toolName)
			if err != nil {
				return nil, err
			}
			if !available {
				return nil, protocol.ErrUnknownTool
			}
			tool, ok = s.resolveTool(toolName)
		}
		if !ok {
			return nil, protocol.ErrUnknownTool
		}
	}

	if err := ValidateInput(tool.InputSchema, input); err != nil {
		return nil, err
	}

	result, err := s.dispatcher.ExecuteTool(ctx, tool.Backend, tool.Name, input)
	if err != nil {
		wrapped := protocol.NewBackendError(tool.Backend, tool.Name, err)
		s.bus.Publish(event.New(event.KindToolExecuteErr, map[string]interface{}{
			"tool": tool.Name, "backend": tool.Backend, "error": wrapped.Error(),
		}))
		return nil, wrapped
	}

	if s.gate != nil {
		s.gate.MarkUsed(tool.Name)
	}
	s.bus.Publish(event.New(event.KindToolExecuteOK, map[string]interface{}{
		"tool": tool.Name, "backend": tool.Backend,
	}))
	return result, nil
}

// resolveTool returns the gate's live active descriptor when a gate is
// wired, so a tool whose toolset is not active resolves as missing and Call
// goes through EnsureToolAvailable. The repository is consulted only when
// no gate is wired.
func (s *Service) resolveTool(toolName string) (protocol.Tool, bool) {
	if s.gate != nil {
		return s.gate.Lookup(toolName)
	}
	return s.repo.Get(toolName)
}
