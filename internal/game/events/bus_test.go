package events

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	received := false
	var receivedEvent Event

	id := bus.SubscribeFunc(TypeEpisodeStarted, func(e Event) {
		received = true
		receivedEvent = e
	})
	assert.Equal(t, TypeEpisodeStarted+"_func_1", id)

	bus.Publish(NewEpisodeStartedEvent("test-env", 1, 8, 8, true, 3, 14))

	assert.True(t, received, "Event handler should have been called")
	require.NotNil(t, receivedEvent)
	assert.Equal(t, TypeEpisodeStarted, receivedEvent.Type())
	assert.Equal(t, "test-env", receivedEvent.EnvID())
	assert.False(t, receivedEvent.Timestamp().IsZero())
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	handler1Called := false
	handler2Called := false

	bus.SubscribeFunc(TypeStepTaken, func(e Event) {
		handler1Called = true
	})
	bus.SubscribeFunc(TypeStepTaken, func(e Event) {
		handler2Called = true
	})
	assert.Equal(t, 2, bus.HandlerCount(TypeStepTaken))

	bus.Publish(NewStepTakenEvent("test-env", 1, 1, 0, 0, 1, 0, 0.5, false, false))

	assert.True(t, handler1Called, "Handler 1 should have been called")
	assert.True(t, handler2Called, "Handler 2 should have been called")
}

// TestSubscriber is a test implementation of Subscriber
type TestSubscriber struct {
	id              string
	interestedTypes map[string]bool
	receivedEvents  []Event
}

func (ts *TestSubscriber) ID() string {
	return ts.id
}

func (ts *TestSubscriber) HandleEvent(e Event) {
	ts.receivedEvents = append(ts.receivedEvents, e)
}

func (ts *TestSubscriber) InterestedIn(eventType string) bool {
	if ts.interestedTypes == nil {
		return true
	}
	return ts.interestedTypes[eventType]
}

func TestEventBusSubscriber(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())

	subscriber := &TestSubscriber{
		id: "test-subscriber",
		interestedTypes: map[string]bool{
			TypeEpisodeStarted: true,
			TypeEpisodeEnded:   true,
		},
	}

	bus.Subscribe(subscriber)
	assert.Equal(t, 1, bus.Stats().Subscribers)

	bus.Publish(NewEpisodeStartedEvent("test-env", 1, 8, 8, true, 1, 14))
	bus.Publish(NewStepTakenEvent("test-env", 1, 2, 0, 0, 0, 1, 0.5, false, false))
	bus.Publish(NewEpisodeEndedEvent("test-env", 1, "goal", 14, 7.5))

	require.Len(t, subscriber.receivedEvents, 2)
	assert.Equal(t, TypeEpisodeStarted, subscriber.receivedEvents[0].Type())
	assert.Equal(t, TypeEpisodeEnded, subscriber.receivedEvents[1].Type())

	bus.Unsubscribe(subscriber.ID())
	bus.Publish(NewEpisodeStartedEvent("test-env", 2, 8, 8, true, 1, 14))

	assert.Len(t, subscriber.receivedEvents, 2)
	assert.Zero(t, bus.Stats().Subscribers)
}

type panickingSubscriber struct{}

func (panickingSubscriber) ID() string               { return "panics" }
func (panickingSubscriber) HandleEvent(Event)        { panic("boom") }
func (panickingSubscriber) InterestedIn(string) bool { return true }

func TestEventBusRecoversFromPanics(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	bus.Subscribe(panickingSubscriber{})

	called := false
	bus.SubscribeFunc(TypeObstacleStruck, func(Event) { panic("handler boom") })
	bus.SubscribeFunc(TypeObstacleStruck, func(Event) { called = true })

	assert.NotPanics(t, func() {
		bus.Publish(NewObstacleStruckEvent("test-env", 3, 2, 1))
	})
	assert.True(t, called, "later handlers still run after an earlier one panics")

	stats := bus.Stats()
	assert.Equal(t, uint64(1), stats.Published)
	assert.Equal(t, uint64(2), stats.Recovered)
}

func TestEventBusUsesGivenLogger(t *testing.T) {
	var buf bytes.Buffer
	bus := NewEventBus(zerolog.New(&buf).Level(zerolog.DebugLevel))

	bus.Subscribe(panickingSubscriber{})
	bus.Publish(NewObstacleStruckEvent("test-env", 1, 0, 1))

	assert.Contains(t, buf.String(), `"component":"event_bus"`)
	assert.Contains(t, buf.String(), "Subscriber added")
	assert.Contains(t, buf.String(), "Event receiver panicked")
}
