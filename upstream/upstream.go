// Package upstream implements the Client Manager (spec.md §4.6, C6):
// connection lifecycle to backend MCP servers. It is adapted from the
// teacher's Client (client.go) — same "initialize once, cache tools,
// serialize access under one RWMutex" shape — generalized from a single
// hard-coded HTTP client to a connection map keyed by backend name, each
// entry driving whichever wire transport (§4.8, §4.12) its Config names.
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/protocol"
)

// toolCacheSize bounds how many backends' most recent tools/list result
// ClientManager keeps around for CachedTools, independent of how many
// backends are actually connected at once.
const toolCacheSize = 256

// TransportKind selects how a backend connection is dialed.
type TransportKind string

const (
	TransportStdio     TransportKind = "stdio"
	TransportHTTP      TransportKind = "http"
	TransportWebSocket TransportKind = "websocket"
)

// Config describes one backend, per spec.md §4.6's {name, command, args,
// env, transport} shape.
type Config struct {
	Name      string
	Command   string
	Args      []string
	Env       map[string]string
	Transport TransportKind
	URL       string // used by http/websocket transports
	Auth      AuthProvider // optional: attached by the dialer as an outbound header
}

// Wire is the minimal bidirectional JSON-RPC transport a backend
// connection drives. Concrete implementations live in package transport;
// upstream only depends on this interface so it never has to know about
// pipes, sockets, or HTTP round trips directly.
type Wire interface {
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
	Close() error
}

// Dialer opens a Wire for a given Config. Supplied by the caller (the
// router's wiring code) so upstream stays transport-agnostic and testable
// with fakes.
type Dialer func(Config) (Wire, error)

type connection struct {
	cfg   Config
	wire  Wire
	tools []protocol.Tool
}

// ClientManager tracks live backend connections. Connect/disconnect are
// serialized so a connect and an in-flight executeTool never race the
// connection map, per spec.md §5.
type ClientManager struct {
	mu     sync.RWMutex
	dialer Dialer
	bus    *event.Bus
	conns  map[string]*connection

	// toolCache holds each backend's most recent tools/list result,
	// grounded on the corpus's common per-backend tool-list cache
	// (SPEC_FULL.md §9.2); a cache hit lets callers such as the gate's
	// toolset loaders in cmd/toolgated refresh without a round trip to the
	// backend.
	toolCache *lru.Cache[string, []protocol.Tool]
}

// New constructs a ClientManager. bus may be nil.
func New(dialer Dialer, bus *event.Bus) *ClientManager {
	if bus == nil {
		bus = event.NewBus()
	}
	cache, _ := lru.New[string, []protocol.Tool](toolCacheSize)
	return &ClientManager{
		dialer:    dialer,
		bus:       bus,
		conns:     make(map[string]*connection),
		toolCache: cache,
	}
}

// CachedTools returns the last tools/list result recorded for backend,
// without making a round trip.
func (m *ClientManager) CachedTools(backend string) ([]protocol.Tool, bool) {
	return m.toolCache.Get(backend)
}

// Connect spawns/opens cfg's transport, performs the MCP initialize
// handshake via ListTools's underlying call, and stores the connection.
// Reconnecting an existing name disconnects the prior client first.
func (m *ClientManager) Connect(ctx context.Context, cfg Config) error {
	m.mu.Lock()
	if existing, ok := m.conns[cfg.Name]; ok {
		existing.wire.Close()
		delete(m.conns, cfg.Name)
	}
	m.mu.Unlock()

	wire, err := m.dialer(cfg)
	if err != nil {
		return fmt.Errorf("connect backend %q: %w", cfg.Name, err)
	}

	if _, err := wire.Call(ctx, "initialize", protocol.InitializeParams{
		ProtocolVersion: fmt.Sprintf("%d-%02d-%02d", protocol.ProtocolVersionMajor, protocol.ProtocolVersionMinor, protocol.ProtocolVersionPatch),
		ClientInfo:      protocol.ClientInfo{Name: "toolgate", Version: "1.0.0"},
		Capabilities:    map[string]interface{}{},
	}); err != nil {
		wire.Close()
		return fmt.Errorf("initialize backend %q: %w", cfg.Name, err)
	}

	m.mu.Lock()
	m.conns[cfg.Name] = &connection{cfg: cfg, wire: wire}
	m.mu.Unlock()

	m.bus.Publish(event.New(event.KindBackendConnected, map[string]interface{}{"backend": cfg.Name}))
	return nil
}

// Disconnect tears a backend connection down. Idempotent.
func (m *ClientManager) Disconnect(name string) {
	m.mu.Lock()
	conn, ok := m.conns[name]
	if ok {
		delete(m.conns, name)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	conn.wire.Close()
	m.toolCache.Remove(name)
	m.bus.Publish(event.New(event.KindBackendDisconnected, map[string]interface{}{"backend": name}))
}

// Connected reports whether a backend is currently connected.
func (m *ClientManager) Connected(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.conns[name]
	return ok
}

// ListTools issues tools/list on the named backend and validates each
// returned descriptor, silently skipping malformed entries per spec.md
// §4.6 (requires name and inputSchema).
func (m *ClientManager) ListTools(ctx context.Context, name string) ([]protocol.Tool, error) {
	m.mu.RLock()
	conn, ok := m.conns[name]
	m.mu.RUnlock()
	if !ok {
		return nil, protocol.ErrNoConnection
	}

	raw, err := conn.wire.Call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}

	var listed struct {
		Tools []protocol.Tool `json:"tools"`
	}
	if err := json.Unmarshal(raw, &listed); err != nil {
		return nil, fmt.Errorf("decode tools/list from %q: %w", name, err)
	}

	valid := make([]protocol.Tool, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		if tool.Name == "" || tool.InputSchema == nil {
			continue
		}
		tool.Backend = name
		valid = append(valid, tool)
	}

	m.mu.Lock()
	if conn, ok := m.conns[name]; ok {
		conn.tools = valid
	}
	m.mu.Unlock()
	m.toolCache.Add(name, valid)

	return valid, nil
}

// ExecuteTool issues tools/call on the backend owning toolName.
func (m *ClientManager) ExecuteTool(ctx context.Context, backend, toolName string, input map[string]interface{}) (*protocol.ToolCallResult, error) {
	m.mu.RLock()
	conn, ok := m.conns[backend]
	m.mu.RUnlock()
	if !ok {
		return nil, protocol.ErrNoConnection
	}

	raw, err := conn.wire.Call(ctx, "tools/call", protocol.ToolCallParams{Name: toolName, Arguments: input})
	if err != nil {
		return nil, err
	}

	var result protocol.ToolCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode tools/call result from %q: %w", backend, err)
	}
	return &result, nil
}
