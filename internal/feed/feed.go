// Package feed delivers bookmark change notifications to owner-scoped
// subscribers. Every event, regardless of shape, means "reload the list":
// subscribers never receive row payloads, only a wake-up signal.
//
// Delivery is at-least-once. Each subscriber has a coalescing buffer of one
// pending event, so a burst of changes collapses into a single wake-up and a
// slow consumer never blocks a publisher.
package feed

import (
	"context"
	"sync"
)

// Op is the kind of change that produced an event.
type Op string

// Change operations. Consumers collapse all of them into a full reload.
const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Event is a change notification scoped to one owner.
type Event struct {
	Owner string `json:"owner"`
	Op    Op     `json:"op"`
}

// Publisher pushes change events into the feed.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

// Subscriber hands out owner-scoped event streams.
type Subscriber interface {
	Subscribe(ownerID string) (<-chan Event, func())
}

// Bus is a feed that can be both published to and subscribed from.
type Bus interface {
	Publisher
	Subscriber
}

// Hub is an in-process Bus. It fans each published event out to every
// subscriber registered for the event's owner.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]chan Event
	nextID      int
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		subscribers: map[string]map[int]chan Event{},
	}
}

// Subscribe registers a stream for the given owner. The returned cancel
// function removes the subscription and closes the channel; it is safe to
// call more than once.
func (h *Hub) Subscribe(ownerID string) (<-chan Event, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.subscribers[ownerID] == nil {
		h.subscribers[ownerID] = map[int]chan Event{}
	}

	id := h.nextID
	h.nextID++

	// Capacity 1: one pending wake-up is as good as many.
	channel := make(chan Event, 1)
	h.subscribers[ownerID][id] = channel

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()

			delete(h.subscribers[ownerID], id)
			if len(h.subscribers[ownerID]) == 0 {
				delete(h.subscribers, ownerID)
			}
			close(channel)
		})
	}

	return channel, cancel
}

// Publish delivers the event to every subscriber of event.Owner.
// Subscribers with an undrained pending event are skipped, not blocked on.
func (h *Hub) Publish(ctx context.Context, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, channel := range h.subscribers[event.Owner] {
		select {
		case channel <- event:
		default:
		}
	}
}

// SubscriberCount reports how many streams are open for the given owner.
func (h *Hub) SubscriberCount(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.subscribers[ownerID])
}
