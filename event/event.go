// Package event implements the typed event bus called for by spec.md §9:
// a single publish/subscribe interface replacing the ad hoc event emitters
// scattered across the proxy service, client manager, and gating service
// in the reference implementation.
package event

import "sync"

// Kind is a closed sum type of every event the proxy can emit.
type Kind string

const (
	KindToolExecuteOK       Kind = "tool.execute.ok"
	KindToolExecuteErr      Kind = "tool.execute.err"
	KindGateAutoEnable      Kind = "gate.auto_enable"
	KindGateAutoDisableTTL  Kind = "gate.auto_disable.ttl"
	KindGateAutoDisableLRU  Kind = "gate.auto_disable.lru"
	KindBackendConnected    Kind = "backend.connected"
	KindBackendDisconnected Kind = "backend.disconnected"
	KindGatingMetrics       Kind = "gating.metrics"
)

// Event is a single occurrence published on the bus. Fields beyond Kind
// are payload-specific and left to the caller's convention (string keys
// keep the bus decoupled from every component's concrete payload type).
type Event struct {
	Kind Kind
	Data map[string]interface{}
}

func New(kind Kind, data map[string]interface{}) Event {
	if data == nil {
		data = map[string]interface{}{}
	}
	return Event{Kind: kind, Data: data}
}

// Handler receives published events. Handlers run synchronously on the
// publisher's goroutine; a handler that wants async work must spawn it.
type Handler func(Event)

// Bus is a process-local, mutex-guarded publish/subscribe hub. It is
// constructed once per proxy instance and injected into every component
// that needs to emit or observe events (never a package-level singleton,
// per spec.md §9).
type Bus struct {
	mu       sync.RWMutex
	handlers map[Kind][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[Kind][]Handler)}
}

// Subscribe registers a handler for a specific event kind. Returns an
// unsubscribe function.
func (b *Bus) Subscribe(kind Kind, handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[kind] = append(b.handlers[kind], handler)
	idx := len(b.handlers[kind]) - 1
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		handlers := b.handlers[kind]
		if idx < len(handlers) {
			handlers[idx] = nil
		}
	}
}

// Publish invokes every handler subscribed to ev.Kind, in subscription
// order. Publish never blocks on I/O performed by handlers that choose to
// stay synchronous; slow handlers are the caller's responsibility.
func (b *Bus) Publish(ev Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.Kind]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		if h != nil {
			h(ev)
		}
	}
}
