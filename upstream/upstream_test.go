package upstream

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/toolgate/toolgate/protocol"
)

type fakeWire struct {
	closed     bool
	listResult json.RawMessage
	callResult json.RawMessage
	failCall   error
}

func (f *fakeWire) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	if f.failCall != nil {
		return nil, f.failCall
	}
	switch method {
	case "initialize":
		return json.RawMessage(`{}`), nil
	case "tools/list":
		return f.listResult, nil
	case "tools/call":
		return f.callResult, nil
	default:
		return nil, nil
	}
}

func (f *fakeWire) Close() error {
	f.closed = true
	return nil
}

func dialerFor(wires map[string]*fakeWire) Dialer {
	return func(cfg Config) (Wire, error) {
		return wires[cfg.Name], nil
	}
}

func TestConnectAndListToolsSkipsMalformed(t *testing.T) {
	wire := &fakeWire{listResult: json.RawMessage(`{
		"tools": [
			{"name": "files/read", "inputSchema": {"type": "object"}},
			{"name": "", "inputSchema": {"type": "object"}},
			{"name": "no-schema"}
		]
	}`)}
	m := New(dialerFor(map[string]*fakeWire{"files": wire}), nil)

	if err := m.Connect(context.Background(), Config{Name: "files"}); err != nil {
		t.Fatalf("connect: %v", err)
	}
	tools, err := m.ListTools(context.Background(), "files")
	if err != nil {
		t.Fatalf("listTools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "files/read" {
		t.Fatalf("expected only the valid descriptor, got %v", tools)
	}
	if tools[0].Backend != "files" {
		t.Fatalf("expected backend stamped on descriptor, got %q", tools[0].Backend)
	}
}

func TestListToolsUnknownBackend(t *testing.T) {
	m := New(dialerFor(nil), nil)
	if _, err := m.ListTools(context.Background(), "missing"); err != protocol.ErrNoConnection {
		t.Fatalf("expected ErrNoConnection, got %v", err)
	}
}

func TestExecuteToolUnknownBackend(t *testing.T) {
	m := New(dialerFor(nil), nil)
	if _, err := m.ExecuteTool(context.Background(), "missing", "tool", nil); err != protocol.ErrNoConnection {
		t.Fatalf("expected ErrNoConnection, got %v", err)
	}
}

func TestExecuteToolDecodesResult(t *testing.T) {
	wire := &fakeWire{callResult: json.RawMessage(`{"content":[{"type":"text","text":"ok"}]}`)}
	m := New(dialerFor(map[string]*fakeWire{"files": wire}), nil)
	_ = m.Connect(context.Background(), Config{Name: "files"})

	result, err := m.ExecuteTool(context.Background(), "files", "files/read", map[string]interface{}{"path": "/tmp"})
	if err != nil {
		t.Fatalf("executeTool: %v", err)
	}
	if len(result.Content) != 1 || result.Content[0].Text != "ok" {
		t.Fatalf("unexpected result: %v", result)
	}
}

func TestReconnectClosesPriorConnection(t *testing.T) {
	first := &fakeWire{listResult: json.RawMessage(`{"tools":[]}`)}
	second := &fakeWire{listResult: json.RawMessage(`{"tools":[]}`)}

	calls := 0
	dialer := func(cfg Config) (Wire, error) {
		calls++
		if calls == 1 {
			return first, nil
		}
		return second, nil
	}

	m := New(dialer, nil)
	_ = m.Connect(context.Background(), Config{Name: "files"})
	_ = m.Connect(context.Background(), Config{Name: "files"})

	if !first.closed {
		t.Fatalf("expected prior connection closed on reconnect")
	}
	if second.closed {
		t.Fatalf("new connection should remain open")
	}
}

func TestDisconnectIsIdempotent(t *testing.T) {
	wire := &fakeWire{}
	m := New(dialerFor(map[string]*fakeWire{"files": wire}), nil)
	_ = m.Connect(context.Background(), Config{Name: "files"})

	m.Disconnect("files")
	if !wire.closed {
		t.Fatalf("expected connection closed")
	}
	m.Disconnect("files") // should not panic
	if m.Connected("files") {
		t.Fatalf("expected backend no longer connected")
	}
}
