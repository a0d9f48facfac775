package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/toolgate/toolgate/protocol"
)

// WebSocketConfig tunes reconnect behavior, per spec.md §4.8.
type WebSocketConfig struct {
	URL               string
	ReconnectAttempts int
	ReconnectDelay    time.Duration
}

type pendingCall struct {
	resp chan *protocol.Response
	err  chan error
}

// WebSocket is a persistent, reconnecting connection keyed by URL.
// Outbound sendRequest calls are correlated by id against inbound
// responses; on disconnect every inflight call is rejected with
// ErrTransportStopped and a reconnect loop with exponential backoff kicks
// in, bounded by ReconnectAttempts/ReconnectDelay.
type WebSocket struct {
	cfg WebSocketConfig

	mu       sync.Mutex
	conn     *websocket.Conn
	pending  map[string]*pendingCall
	reqFn    RequestHandler
	notifyFn NotificationHandler
	stopped  bool
	nextID   int64
	connected bool
	lastErr  string
}

// NewWebSocket constructs a WebSocket transport. Start dials the
// connection and begins the read loop.
func NewWebSocket(cfg WebSocketConfig) *WebSocket {
	return &WebSocket{cfg: cfg, pending: make(map[string]*pendingCall)}
}

func (w *WebSocket) OnRequest(handler RequestHandler) {
	w.mu.Lock()
	w.reqFn = handler
	w.mu.Unlock()
}

func (w *WebSocket) OnNotification(handler NotificationHandler) {
	w.mu.Lock()
	w.notifyFn = handler
	w.mu.Unlock()
}

func (w *WebSocket) Start(ctx context.Context) error {
	if err := w.dial(); err != nil {
		go w.reconnectLoop(ctx)
		return err
	}
	go w.readLoop(ctx)
	return nil
}

func (w *WebSocket) dial() error {
	conn, _, err := websocket.DefaultDialer.Dial(w.cfg.URL, nil)
	if err != nil {
		w.mu.Lock()
		w.connected = false
		w.lastErr = err.Error()
		w.mu.Unlock()
		return err
	}
	w.mu.Lock()
	w.conn = conn
	w.connected = true
	w.lastErr = ""
	w.mu.Unlock()
	return nil
}

func (w *WebSocket) reconnectLoop(ctx context.Context) {
	delay := w.cfg.ReconnectDelay
	if delay <= 0 {
		delay = time.Second
	}
	attempts := w.cfg.ReconnectAttempts
	if attempts <= 0 {
		attempts = 1
	}

	for i := 0; i < attempts; i++ {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}

		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.mu.Unlock()

		if err := w.dial(); err == nil {
			go w.readLoop(ctx)
			return
		}
		delay *= 2
	}
}

func (w *WebSocket) readLoop(ctx context.Context) {
	for {
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()
		if conn == nil {
			return
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			w.handleDisconnect(ctx)
			return
		}

		var envelope struct {
			ID interface{} `json:"id"`
		}
		_ = json.Unmarshal(data, &envelope)

		var resp protocol.Response
		if err := json.Unmarshal(data, &resp); err == nil && (resp.Result != nil || resp.Error != nil) {
			if id, ok := idKey(envelope.ID); ok {
				w.mu.Lock()
				pc, exists := w.pending[id]
				if exists {
					delete(w.pending, id)
				}
				w.mu.Unlock()
				if exists {
					pc.resp <- &resp
					continue
				}
			}
		}

		var req protocol.Request
		if err := json.Unmarshal(data, &req); err == nil {
			if req.IsNotification() {
				w.mu.Lock()
				fn := w.notifyFn
				w.mu.Unlock()
				if fn != nil {
					fn(ctx, &req)
				}
			} else {
				w.mu.Lock()
				handler := w.reqFn
				w.mu.Unlock()
				if handler != nil {
					reply := handler(ctx, &req)
					w.writeJSON(reply)
				}
			}
		}
	}
}

func (w *WebSocket) handleDisconnect(ctx context.Context) {
	w.mu.Lock()
	w.connected = false
	for id, pc := range w.pending {
		pc.err <- protocol.ErrTransportStopped
		delete(w.pending, id)
	}
	stopped := w.stopped
	w.mu.Unlock()

	if !stopped {
		go w.reconnectLoop(ctx)
	}
}

func idKey(id interface{}) (string, bool) {
	if id == nil {
		return "", false
	}
	return fmt.Sprintf("%v", id), true
}

func (w *WebSocket) writeJSON(v interface{}) error {
	w.mu.Lock()
	conn := w.conn
	w.mu.Unlock()
	if conn == nil {
		return protocol.ErrTransportStopped
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, encoded)
}

// SendRequest assigns a correlation id, writes req, and waits for the
// matching response or timeout. A mandatory per-request timeout backstops
// every call, per spec.md §4.8.
func (w *WebSocket) SendRequest(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	w.mu.Lock()
	w.nextID++
	id := fmt.Sprintf("ws-%d", w.nextID)
	req.ID = id
	pc := &pendingCall{resp: make(chan *protocol.Response, 1), err: make(chan error, 1)}
	w.pending[id] = pc
	w.mu.Unlock()

	if err := w.writeJSON(req); err != nil {
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
		return nil, err
	}

	select {
	case resp := <-pc.resp:
		return resp, nil
	case err := <-pc.err:
		return nil, err
	case <-time.After(timeout):
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
		return nil, protocol.ErrRequestTimeout
	case <-ctx.Done():
		w.mu.Lock()
		delete(w.pending, id)
		w.mu.Unlock()
		return nil, ctx.Err()
	}
}

// SendNotification writes notif without waiting for a reply.
func (w *WebSocket) SendNotification(ctx context.Context, notif *protocol.Request) error {
	return w.writeJSON(notif)
}

func (w *WebSocket) Stop() error {
	w.mu.Lock()
	w.stopped = true
	conn := w.conn
	for id, pc := range w.pending {
		pc.err <- protocol.ErrTransportStopped
		delete(w.pending, id)
	}
	w.mu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

func (w *WebSocket) Health() Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Health{Connected: w.connected, LastError: w.lastErr}
}
