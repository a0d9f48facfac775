package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/toolgate/toolgate/protocol"
)

// HTTP is the server-side transport of spec.md §4.8: it hosts a local
// listener and routes POST / to the registered request handler, returning
// 204 for notifications. It is adapted from the teacher's client-side
// http.Client usage (client.go) generalized to also run the server half,
// sharing a pooled *http.Client for any outbound calls it makes as an
// upstream dialer.
type HTTP struct {
	addr   string
	pool   *Pool
	server *http.Server

	mu       sync.Mutex
	reqFn    RequestHandler
	notifyFn NotificationHandler

	baseURL string // set when used as an outbound (backend) connection

	bearerTokens map[string]struct{}        // non-nil: inbound requests must present one of these, per spec.md §6.1
	authHeader   func() (string, error)      // non-nil: outbound requests carry this header, e.g. an upstream.AuthProvider
}

// Option configures optional HTTP transport behavior.
type Option func(*HTTP)

// WithBearerTokens gates every inbound request behind a static bearer
// token set (spec.md §6.1): missing or unrecognized tokens fail with
// ErrCodeApplication before the request ever reaches the router.
func WithBearerTokens(tokens []string) Option {
	return func(h *HTTP) {
		set := make(map[string]struct{}, len(tokens))
		for _, t := range tokens {
			set[t] = struct{}{}
		}
		h.bearerTokens = set
	}
}

// WithAuthHeader attaches a header-producing function (typically an
// upstream.AuthProvider.GetAuthHeader) to every outbound request this
// transport makes as a backend dialer.
func WithAuthHeader(fn func() (string, error)) Option {
	return func(h *HTTP) { h.authHeader = fn }
}

// NewHTTPServer constructs a server-side HTTP transport listening on addr.
func NewHTTPServer(addr string, pool *Pool, opts ...Option) *HTTP {
	if pool == nil {
		pool = NewPool(DefaultPoolConfig())
	}
	h := &HTTP{addr: addr, pool: pool}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// NewHTTPClient constructs a client-side HTTP transport that POSTs
// outbound requests to baseURL — used by upstream.ClientManager to dial an
// HTTP backend.
func NewHTTPClient(baseURL string, pool *Pool, opts ...Option) *HTTP {
	if pool == nil {
		pool = NewPool(DefaultPoolConfig())
	}
	h := &HTTP{baseURL: baseURL, pool: pool}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *HTTP) OnRequest(handler RequestHandler) {
	h.mu.Lock()
	h.reqFn = handler
	h.mu.Unlock()
}

func (h *HTTP) OnNotification(handler NotificationHandler) {
	h.mu.Lock()
	h.notifyFn = handler
	h.mu.Unlock()
}

// Start begins serving if this transport was constructed with an addr.
func (h *HTTP) Start(ctx context.Context) error {
	if h.addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.serveHTTP)
	h.server = &http.Server{Addr: h.addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.server.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-time.After(50 * time.Millisecond):
	}
	return nil
}

func (h *HTTP) serveHTTP(w http.ResponseWriter, r *http.Request) {
	if h.bearerTokens != nil {
		if !h.authorized(r) {
			writeJSON(w, http.StatusOK, protocol.ErrorResponse(nil, protocol.ErrCodeApplication, "Unauthorized", nil))
			return
		}
	}

	var req protocol.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, protocol.ErrorResponse(nil, protocol.ErrCodeParseError, "Parse error", err.Error()))
		return
	}

	if req.IsNotification() {
		h.mu.Lock()
		fn := h.notifyFn
		h.mu.Unlock()
		if fn != nil {
			fn(r.Context(), &req)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	h.mu.Lock()
	handler := h.reqFn
	h.mu.Unlock()
	if handler == nil {
		writeJSON(w, http.StatusOK, protocol.ErrorResponse(req.ID, protocol.ErrCodeMethodNotFound, "Method not found", nil))
		return
	}

	ctx := WithSessionID(r.Context(), r.Header.Get("Mcp-Session-Id"))
	resp := handler(ctx, &req)
	writeJSON(w, http.StatusOK, resp)
}

func (h *HTTP) authorized(r *http.Request) bool {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if len(header) <= len(prefix) || header[:len(prefix)] != prefix {
		return false
	}
	_, ok := h.bearerTokens[header[len(prefix):]]
	return ok
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// SendRequest POSTs req to baseURL and parses the response. Used when this
// transport dials an HTTP backend as a client.
func (h *HTTP) SendRequest(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	if h.baseURL == "" {
		return nil, fmt.Errorf("http transport has no baseURL configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if h.authHeader != nil {
		value, err := h.authHeader()
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Authorization", value)
	}

	resp, err := h.pool.Client().Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, protocol.ErrRequestTimeout
		}
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var out protocol.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendNotification POSTs notif to baseURL and discards the response.
func (h *HTTP) SendNotification(ctx context.Context, notif *protocol.Request) error {
	_, err := h.SendRequest(ctx, notif, 30*time.Second)
	return err
}

func (h *HTTP) Stop() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}

func (h *HTTP) Health() Health {
	return Health{Connected: true}
}
