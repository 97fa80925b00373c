package events

import (
	"log/slog"
	"sync"

	"github.com/dicearena/dicearena/internal/model"
)

// subscriberBuffer is the per-subscription channel depth; events beyond it
// are dropped rather than blocking the publisher
const subscriberBuffer = 64

// Filter decides whether a subscription receives an event
type Filter func(model.Event) bool

// All passes every event
func All(model.Event) bool { return true }

// ForPlayer passes events addressed to any of the given players
func ForPlayer(ids ...model.PlayerID) Filter {
	return func(e model.Event) bool {
		for _, id := range ids {
			if e.PlayerID == id {
				return true
			}
		}
		return false
	}
}

// ForRoom passes events for the given room
func ForRoom(id model.RoomID) Filter {
	return func(e model.Event) bool { return e.RoomID == id }
}

// ForMatch passes events for the given match
func ForMatch(id model.MatchID) Filter {
	return func(e model.Event) bool { return e.MatchID == id }
}

// Any passes events matching any of the given filters
func Any(filters ...Filter) Filter {
	return func(e model.Event) bool {
		for _, f := range filters {
			if f(e) {
				return true
			}
		}
		return false
	}
}

// Subscription is one registered event consumer
type Subscription struct {
	id     int
	ch     chan model.Event
	filter Filter
}

// Events returns the subscription's receive channel. It is closed when the
// subscription is removed or the bus is closed.
func (s *Subscription) Events() <-chan model.Event {
	return s.ch
}

// Bus is the in-process pub/sub surface between the engine and its
// subscribers. Publishing never blocks; a slow subscriber loses events.
type Bus struct {
	mu     sync.RWMutex
	subs   map[int]*Subscription
	nextID int
	closed bool
	logger *slog.Logger
}

// NewBus creates a new event bus
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[int]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a consumer for events matching the filter
func (b *Bus) Subscribe(filter Filter) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		id:     b.nextID,
		ch:     make(chan model.Event, subscriberBuffer),
		filter: filter,
	}
	if b.closed {
		close(sub.ch)
		return sub
	}
	b.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscription and closes its channel
func (b *Bus) Unsubscribe(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[sub.id]; ok {
		delete(b.subs, sub.id)
		close(sub.ch)
	}
}

// Publish delivers the event to every matching subscription
func (b *Bus) Publish(event model.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, sub := range b.subs {
		if !sub.filter(event) {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			b.logger.Warn("event dropped - subscriber buffer full",
				slog.String("event_type", string(event.Type)),
			)
		}
	}
}

// Close shuts the bus down and closes every subscription channel
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}
