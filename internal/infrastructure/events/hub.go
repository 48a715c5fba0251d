package events

import (
	"sync"

	"go.uber.org/zap"
)

// Event names published on the hub.
const (
	EventCallCreated  = "call.created"
	EventCallUpdated  = "call.updated"
	EventCallFinished = "call.finished"
	EventCallSummary  = "call.summary"
)

// subscriberBuffer bounds the per-subscriber queue. A subscriber that stops
// reading loses events beyond this; it never slows the publisher.
const subscriberBuffer = 100

// Event is one published notification.
type Event struct {
	Name    string      `json:"event"`
	Payload interface{} `json:"data"`
}

// Subscription is one live observer's handle. Events starts at subscribe time;
// there is no replay of history.
type Subscription struct {
	id uint64
	ch chan Event
}

// Events returns the subscriber's queue. The channel is closed on unsubscribe.
func (s *Subscription) Events() <-chan Event {
	return s.ch
}

// Hub fans published events out to all current subscribers. Publish is
// non-blocking: a full subscriber queue drops that subscriber's copy of the
// event rather than stalling delivery to everyone else.
type Hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		subs:   make(map[uint64]*Subscription),
		logger: logger,
	}
}

// Subscribe registers a new subscriber starting from now.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id: h.nextID,
		ch: make(chan Event, subscriberBuffer),
	}
	h.subs[sub.id] = sub
	return sub
}

// Unsubscribe removes the subscriber and closes its queue. Safe to call
// concurrently with Publish; the write lock excludes in-flight sends.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.ch)
}

// Publish delivers the event to every current subscriber, dropping it for any
// subscriber whose queue is full.
func (h *Hub) Publish(name string, payload interface{}) {
	event := Event{Name: name, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subs {
		select {
		case sub.ch <- event:
		default:
			if h.logger != nil {
				h.logger.Warn("dropping event for slow subscriber",
					zap.String("event", name),
					zap.Uint64("subscriber_id", sub.id),
				)
			}
		}
	}
}

// SubscriberCount reports the number of live subscribers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
