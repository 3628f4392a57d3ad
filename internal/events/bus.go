package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives events synchronously on the publisher's goroutine.
type Handler func(Event)

// Sink forwards events out of process. Delivery is best effort: errors are
// logged and never surfaced to publishers.
type Sink interface {
	Publish(ctx context.Context, event Event) error
}

const defaultHistorySize = 1000

// Bus is the in-process event bus. Publishing is fire-and-forget: a panic
// or error in one handler never reaches the publisher or other handlers.
// Safe for concurrent use from multiple agent pipelines.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Type][]Handler
	all      []Handler
	history  []Event
	maxHist  int
	sink     Sink
}

type BusOption func(*Bus)

// WithSink forwards every published event to an external sink.
func WithSink(s Sink) BusOption {
	return func(b *Bus) { b.sink = s }
}

func WithHistorySize(n int) BusOption {
	return func(b *Bus) { b.maxHist = n }
}

func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		handlers: make(map[Type][]Handler),
		maxHist:  defaultHistorySize,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for one event type.
func (b *Bus) Subscribe(typ Type, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[typ] = append(b.handlers[typ], h)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.all = append(b.all, h)
}

func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.Lock()
	b.history = append(b.history, event)
	if len(b.history) > b.maxHist {
		b.history = b.history[len(b.history)-b.maxHist:]
	}
	typed := make([]Handler, len(b.handlers[event.Type]))
	copy(typed, b.handlers[event.Type])
	all := make([]Handler, len(b.all))
	copy(all, b.all)
	sink := b.sink
	b.mu.Unlock()

	for _, h := range typed {
		b.safeHandle(h, event)
	}
	for _, h := range all {
		b.safeHandle(h, event)
	}

	if sink != nil {
		if err := sink.Publish(ctx, event); err != nil {
			slog.Warn("event sink publish failed", "type", event.Type, "error", err)
		}
	}
}

func (b *Bus) safeHandle(h Handler, event Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event handler panicked", "type", event.Type, "panic", r)
		}
	}()
	h(event)
}

// Recent returns up to n most recent events, newest first.
func (b *Bus) Recent(n int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n > len(b.history) {
		n = len(b.history)
	}
	out := make([]Event, n)
	for i := 0; i < n; i++ {
		out[i] = b.history[len(b.history)-1-i]
	}
	return out
}
