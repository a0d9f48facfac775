package router

import (
	"context"
	"testing"

	"github.com/toolgate/toolgate/discovery"
	"github.com/toolgate/toolgate/event"
	"github.com/toolgate/toolgate/gate"
	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/proxy"
	"github.com/toolgate/toolgate/repository"
	"github.com/toolgate/toolgate/session"
)

type fakeDispatcher struct{}

func (d *fakeDispatcher) ExecuteTool(ctx context.Context, backend, toolName string, input map[string]interface{}) (*protocol.ToolCallResult, error) {
	return protocol.TextResult("ok:" + toolName), nil
}

func newTestRouter(t *testing.T) (*Router, session.Manager) {
	t.Helper()
	bus := event.NewBus()
	repo := repository.New()
	gateCtl := gate.New(gate.Config{AutoEnable: true}, bus, nil)
	gateCtl.Register(gate.Toolset{
		ID: "files",
		Loader: func() ([]protocol.Tool, error) {
			return []protocol.Tool{{Name: "files/read", Backend: "files", InputSchema: map[string]interface{}{"type": "object"}}}, nil
		},
		Manifest: &gate.Manifest{ID: "files", Name: "Files", Tools: []string{"files/read"}},
	})
	proxySvc := proxy.New(repo, &fakeDispatcher{}, gateCtl, bus)
	sessions := session.NewMemory(0)
	gating := discovery.NewGatingService(repo.All, bus)

	r := &Router{
		ServerInfo: protocol.ServerInfo{Name: "toolgate", Version: "test"},
		Gate:       gateCtl,
		Repo:       repo,
		Proxy:      proxySvc,
		Sessions:   sessions,
		Gating:     gating,
		Bus:        bus,
	}
	return r, sessions
}

func TestHandleRejectsBeforeInitialize(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")

	resp := r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "tools/list"})
	if resp.Error == nil || resp.Error.Code != protocol.ErrCodeNotInitialized {
		t.Fatalf("expected not-initialized error, got %+v", resp)
	}
}

func TestHandleInitializeThenToolsList(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")

	initResp := r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})
	if initResp.Error != nil {
		t.Fatalf("unexpected initialize error: %+v", initResp.Error)
	}

	listResp := r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 2, Method: "tools/list"})
	if listResp.Error != nil {
		t.Fatalf("unexpected tools/list error: %+v", listResp.Error)
	}
	entries, ok := listResp.Result.([]protocol.ToolListEntry)
	if !ok {
		t.Fatalf("unexpected result type %T", listResp.Result)
	}
	found := false
	for _, e := range entries {
		if e.Name == "system/info" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected system/info builtin listed, got %+v", entries)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")
	r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	resp := r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 2, Method: "bogus/method"})
	if resp.Error == nil || resp.Error.Code != protocol.ErrCodeMethodNotFound {
		t.Fatalf("expected method-not-found, got %+v", resp)
	}
}

func TestHandleToolsCallBuiltin(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")
	r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	resp := r.Handle(context.Background(), sess.ID, &protocol.Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/call",
		Params: protocol.ToolCallParams{Name: "system/health"},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
}

func TestHandleToolsCallActivatesGatedToolset(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")
	r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	resp := r.Handle(context.Background(), sess.ID, &protocol.Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/call",
		Params: protocol.ToolCallParams{Name: "files/read", Arguments: map[string]interface{}{}},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(*protocol.ToolCallResult)
	if !ok || result.Content[0].Text != "ok:files/read" {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}
}

func TestHandleToolsCallSchemaDescribesBuiltin(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")
	r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	resp := r.Handle(context.Background(), sess.ID, &protocol.Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/call",
		Params: protocol.ToolCallParams{Name: "tools/schema", Arguments: map[string]interface{}{"name": "gate/enable_toolset"}},
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %+v", resp.Error)
	}
	tool, ok := resp.Result.(protocol.Tool)
	if !ok {
		t.Fatalf("unexpected result type %T", resp.Result)
	}
	if tool.Name != "gate/enable_toolset" {
		t.Fatalf("unexpected tool: %+v", tool)
	}
	props, _ := tool.InputSchema["properties"].(map[string]interface{})
	if _, ok := props["name"]; !ok {
		t.Fatalf("expected name property in schema, got %+v", tool.InputSchema)
	}
	required, _ := tool.InputSchema["required"].([]string)
	if len(required) != 1 || required[0] != "name" {
		t.Fatalf("expected name required, got %+v", tool.InputSchema["required"])
	}
}

func TestHandleToolsCallUnknownTool(t *testing.T) {
	r, sessions := newTestRouter(t)
	sess, _ := sessions.Create(context.Background(), "http")
	r.Handle(context.Background(), sess.ID, &protocol.Request{JSONRPC: "2.0", ID: 1, Method: "initialize"})

	resp := r.Handle(context.Background(), sess.ID, &protocol.Request{
		JSONRPC: "2.0", ID: 2, Method: "tools/call",
		Params: protocol.ToolCallParams{Name: "nonexistent/tool"},
	})
	if resp.Error == nil {
		t.Fatalf("expected error for unknown tool")
	}
}
