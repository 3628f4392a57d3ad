package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_TypedSubscription(t *testing.T) {
	bus := NewBus()
	var got []Event
	bus.Subscribe(TypeAgentMoved, func(e Event) { got = append(got, e) })

	bus.Publish(context.Background(), New(TypeAgentMoved, map[string]any{"to": "咖啡馆"}))
	bus.Publish(context.Background(), New(TypeAgentDecided, nil))

	require.Len(t, got, 1)
	assert.Equal(t, TypeAgentMoved, got[0].Type)
	assert.Equal(t, "咖啡馆", got[0].Data["to"])
}

func TestBus_SubscribeAllSeesEverything(t *testing.T) {
	bus := NewBus()
	var count int
	bus.SubscribeAll(func(Event) { count++ })

	bus.Publish(context.Background(), New(TypeAgentMoved, nil))
	bus.Publish(context.Background(), New(TypeChatRequested, nil))
	assert.Equal(t, 2, count)
}

func TestBus_PanickingHandlerIsIsolated(t *testing.T) {
	bus := NewBus()
	var reached bool
	bus.Subscribe(TypeWorldTick, func(Event) { panic("boom") })
	bus.Subscribe(TypeWorldTick, func(Event) { reached = true })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), New(TypeWorldTick, nil))
	})
	assert.True(t, reached)
}

func TestBus_HistoryBounded(t *testing.T) {
	bus := NewBus(WithHistorySize(3))
	for i := 0; i < 5; i++ {
		bus.Publish(context.Background(), New(TypeWorldTick, map[string]any{"i": i}))
	}

	recent := bus.Recent(10)
	require.Len(t, recent, 3)
	// Newest first
	assert.Equal(t, 4, recent[0].Data["i"])
	assert.Equal(t, 2, recent[2].Data["i"])
}

type failingSink struct{ calls int }

func (s *failingSink) Publish(context.Context, Event) error {
	s.calls++
	return errors.New("nats down")
}

func TestBus_SinkFailureIsSwallowed(t *testing.T) {
	sink := &failingSink{}
	bus := NewBus(WithSink(sink))

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), New(TypeAgentDecided, nil))
	})
	assert.Equal(t, 1, sink.calls)
}
