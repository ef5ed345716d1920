package events

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// EventBus delivers environment events synchronously, in the publishing
// goroutine. One bus belongs to one environment.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[string]Subscriber
	handlers    map[string][]EventHandler
	published   atomic.Uint64
	recovered   atomic.Uint64
	logger      zerolog.Logger
}

var _ Bus = (*EventBus)(nil)

// NewEventBus creates a bus that logs through logger
func NewEventBus(logger zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string]Subscriber),
		handlers:    make(map[string][]EventHandler),
		logger:      logger.With().Str("component", "event_bus").Logger(),
	}
}

// Subscribe registers subscriber, replacing any with the same ID
func (eb *EventBus) Subscribe(subscriber Subscriber) {
	eb.mu.Lock()
	eb.subscribers[subscriber.ID()] = subscriber
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", subscriber.ID()).Msg("Subscriber added")
}

func (eb *EventBus) Unsubscribe(subscriberID string) {
	eb.mu.Lock()
	delete(eb.subscribers, subscriberID)
	eb.mu.Unlock()

	eb.logger.Debug().Str("subscriber_id", subscriberID).Msg("Subscriber removed")
}

// SubscribeFunc registers handler for one event type and returns an id of
// the form "<type>_func_<n>".
func (eb *EventBus) SubscribeFunc(eventType string, handler EventHandler) string {
	eb.mu.Lock()
	eb.handlers[eventType] = append(eb.handlers[eventType], handler)
	id := fmt.Sprintf("%s_func_%d", eventType, len(eb.handlers[eventType]))
	eb.mu.Unlock()

	return id
}

// Publish hands event to every interested subscriber, then to the
// handlers registered for its type. A panic in one receiver is logged
// and the rest still run.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	eventType := event.Type()
	eb.published.Add(1)

	for id, subscriber := range eb.subscribers {
		if subscriber.InterestedIn(eventType) {
			eb.deliver(id, -1, event, subscriber.HandleEvent)
		}
	}
	for i, handler := range eb.handlers[eventType] {
		eb.deliver("", i, event, handler)
	}
}

// deliver runs one receiver: a subscriber by id, or the handler at index
func (eb *EventBus) deliver(subscriberID string, index int, event Event, handle EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			eb.recovered.Add(1)
			eb.logger.Error().
				Str("subscriber_id", subscriberID).
				Int("handler_index", index).
				Str("event_type", event.Type()).
				Str("env_id", event.EnvID()).
				Interface("panic", r).
				Msg("Event receiver panicked")
		}
	}()
	handle(event)
}

// BusStats reports delivery counters
type BusStats struct {
	Subscribers int
	Published   uint64
	Recovered   uint64
}

// Stats returns the number of subscribers, published events and receiver
// panics recovered so far.
func (eb *EventBus) Stats() BusStats {
	eb.mu.RLock()
	subscribers := len(eb.subscribers)
	eb.mu.RUnlock()

	return BusStats{
		Subscribers: subscribers,
		Published:   eb.published.Load(),
		Recovered:   eb.recovered.Load(),
	}
}

// HandlerCount returns the number of function handlers for eventType
func (eb *EventBus) HandlerCount(eventType string) int {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	return len(eb.handlers[eventType])
}
