package transport

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/toolgate/toolgate/protocol"
)

// Stdio is newline-delimited JSON over an arbitrary reader/writer pair —
// typically os.Stdin/os.Stdout for a server. It only answers inbound
// requests; SendRequest is unsupported, so it does not dial backends.
type Stdio struct {
	in  io.Reader
	out io.Writer

	mu          sync.Mutex
	reqHandler  RequestHandler
	notifyFn    NotificationHandler
	writeMu     sync.Mutex
	stopCh      chan struct{}
	stopped     bool
	lastError   string
}

// NewStdio wraps in/out as a stdio transport.
func NewStdio(in io.Reader, out io.Writer) *Stdio {
	return &Stdio{in: in, out: out, stopCh: make(chan struct{})}
}

func (s *Stdio) OnRequest(handler RequestHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqHandler = handler
}

func (s *Stdio) OnNotification(handler NotificationHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifyFn = handler
}

// Start begins the read loop in the background. One JSON value per line;
// requests (non-nil id) are answered on out, notifications are dispatched
// without a reply.
func (s *Stdio) Start(ctx context.Context) error {
	go s.readLoop(ctx)
	return nil
}

func (s *Stdio) readLoop(ctx context.Context) {
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		select {
		case <-s.stopCh:
			return
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req protocol.Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(protocol.ErrorResponse(nil, protocol.ErrCodeParseError, "Parse error", err.Error()))
			continue
		}

		if req.IsNotification() {
			s.mu.Lock()
			fn := s.notifyFn
			s.mu.Unlock()
			if fn != nil {
				fn(ctx, &req)
			}
			continue
		}

		s.mu.Lock()
		handler := s.reqHandler
		s.mu.Unlock()
		if handler == nil {
			s.writeResponse(protocol.ErrorResponse(req.ID, protocol.ErrCodeMethodNotFound, "Method not found", nil))
			continue
		}
		resp := handler(ctx, &req)
		s.writeResponse(resp)
	}
}

func (s *Stdio) writeResponse(resp *protocol.Response) {
	encoded, err := json.Marshal(resp)
	if err != nil {
		return
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.out.Write(encoded)
	s.out.Write([]byte("\n"))
}

// SendRequest is unsupported on bare stdio: without an external
// correlation layer there is no way to match an outbound request to its
// response on a transport that is also receiving inbound requests.
func (s *Stdio) SendRequest(ctx context.Context, req *protocol.Request, timeout time.Duration) (*protocol.Response, error) {
	return nil, ErrCorrelationRequired
}

// SendNotification writes a fire-and-forget notification line.
func (s *Stdio) SendNotification(ctx context.Context, notif *protocol.Request) error {
	encoded, err := json.Marshal(notif)
	if err != nil {
		return err
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(encoded); err != nil {
		return err
	}
	_, err = s.out.Write([]byte("\n"))
	return err
}

func (s *Stdio) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil
	}
	s.stopped = true
	close(s.stopCh)
	return nil
}

func (s *Stdio) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Health{Connected: !s.stopped, LastError: s.lastError}
}
