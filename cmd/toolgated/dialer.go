package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/toolgate/toolgate/protocol"
	"github.com/toolgate/toolgate/transport"
	"github.com/toolgate/toolgate/upstream"
)

// dialBackend opens upstream.Wire for cfg over whichever transport kind it
// names, per SPEC_FULL.md §4.12. HTTP backends share the pooled client from
// transport.Pool; WebSocket backends open their own connection through
// transport.WebSocket; stdio backends are spawned
// as os/exec.Cmd subprocesses, grounded on the corpus's common
// child-process MCP backend pattern (the teacher is HTTP-only and has no
// subprocess dialing code to adapt).
func dialBackend(pool *transport.Pool) upstream.Dialer {
	return func(cfg upstream.Config) (upstream.Wire, error) {
		switch cfg.Transport {
		case upstream.TransportHTTP:
			var opts []transport.Option
			if cfg.Auth != nil {
				opts = append(opts, transport.WithAuthHeader(cfg.Auth.GetAuthHeader))
			}
			return &httpWire{t: transport.NewHTTPClient(cfg.URL, pool, opts...)}, nil
		case upstream.TransportWebSocket:
			ws := transport.NewWebSocket(transport.WebSocketConfig{URL: cfg.URL})
			if err := ws.Start(context.Background()); err != nil {
				return nil, err
			}
			return &wsWire{t: ws}, nil
		case upstream.TransportStdio:
			return dialStdio(cfg)
		default:
			return nil, fmt.Errorf("unsupported transport kind %q", cfg.Transport)
		}
	}
}

type rpcResponder interface {
	SendRequest(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error)
}

// httpWire and wsWire adapt transport.Transport's SendRequest-based client
// role to upstream.Wire's single Call method.
type httpWire struct {
	t *transport.HTTP
}

func (h *httpWire) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return callVia(ctx, h.t, method, params)
}

func (h *httpWire) Close() error { return h.t.Stop() }

type wsWire struct {
	t *transport.WebSocket
}

func (w *wsWire) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	return callVia(ctx, w.t, method, params)
}

func (w *wsWire) Close() error { return w.t.Stop() }

var callIDs int64

func callVia(ctx context.Context, t rpcResponder, method string, params interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&callIDs, 1)
	req := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, ID: id, Method: method, Params: params}
	resp, err := t.SendRequest(ctx, req, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return json.RawMessage("null"), nil
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return json.Marshal(resp.Result)
}

// stdioWire drives a child process's stdin/stdout as a newline-delimited
// JSON-RPC pipe. Calls are serialized: the child is assumed to answer one
// request before the next is written, matching how stdio MCP backends are
// typically invoked.
type stdioWire struct {
	cmd *exec.Cmd

	mu     sync.Mutex
	writer *bufio.Writer
	reader *bufio.Reader
}

func dialStdio(cfg upstream.Config) (upstream.Wire, error) {
	cmd := exec.Command(cfg.Command, cfg.Args...)
	for k, v := range cfg.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start backend %q: %w", cfg.Name, err)
	}

	return &stdioWire{cmd: cmd, writer: bufio.NewWriter(stdin), reader: bufio.NewReader(stdout)}, nil
}

func (s *stdioWire) Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&callIDs, 1)
	req := &protocol.Request{JSONRPC: protocol.JSONRPCVersion, ID: id, Method: method, Params: params}

	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if _, err := s.writer.Write(append(encoded, '\n')); err != nil {
		return nil, err
	}
	if err := s.writer.Flush(); err != nil {
		return nil, err
	}

	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	var resp protocol.Response
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return json.Marshal(resp.Result)
}

func (s *stdioWire) Close() error {
	if s.cmd.Process == nil {
		return nil
	}
	_ = s.cmd.Process.Kill()
	return s.cmd.Wait()
}
