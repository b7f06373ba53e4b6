// Package events provides the publish/subscribe hub for engine notifications.
//
// Delivery is best-effort and synchronous per subscriber within the process.
// A panicking subscriber is isolated so it can never break a drain cycle.
package events

import (
	"log/slog"
	"sync"
	"time"
)

// EventType identifies the kind of engine event.
type EventType string

const (
	// EventQueueChanged fires whenever the sync queue contents change.
	EventQueueChanged EventType = "queue-changed"
	// EventHistoryChanged fires whenever the history ledger contents change.
	EventHistoryChanged EventType = "history-changed"
	// EventSyncStarted fires at the beginning of a drain cycle.
	EventSyncStarted EventType = "sync-started"
	// EventSyncEnded fires after a drain cycle completes.
	EventSyncEnded EventType = "sync-ended"
	// EventItemSucceeded fires when a request is confirmed by the gateway.
	EventItemSucceeded EventType = "item-succeeded"
	// EventItemFailed fires when a delivery attempt fails.
	EventItemFailed EventType = "item-failed"
)

// Event carries the notification payload delivered to subscribers.
type Event struct {
	Type      EventType
	RequestID string // set for item-succeeded and item-failed
	Err       string // set for item-failed
	At        time.Time
}

// Handler consumes a single event.
type Handler func(Event)

// Notifier is a process-local pub/sub hub, decoupled from any particular
// consumer.
type Notifier struct {
	mu     sync.RWMutex
	subs   map[EventType]map[int]Handler
	nextID int
}

// NewNotifier creates an empty notifier.
func NewNotifier() *Notifier {
	return &Notifier{
		subs: make(map[EventType]map[int]Handler),
	}
}

// Subscribe registers a handler for the given event type and returns a
// function that removes the subscription.
func (n *Notifier) Subscribe(t EventType, h Handler) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	if n.subs[t] == nil {
		n.subs[t] = make(map[int]Handler)
	}
	n.subs[t][id] = h
	slog.Debug("Notifier.Subscribe", "type", t, "id", id)

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs[t], id)
	}
}

// Publish delivers the event to every subscriber of its type, synchronously.
// Subscriber panics are recovered and logged so one bad consumer cannot
// block the publisher.
func (n *Notifier) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	n.mu.RLock()
	handlers := make([]Handler, 0, len(n.subs[e.Type]))
	for _, h := range n.subs[e.Type] {
		handlers = append(handlers, h)
	}
	n.mu.RUnlock()

	for _, h := range handlers {
		n.invoke(h, e)
	}
}

func (n *Notifier) invoke(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Notifier.Publish: subscriber panicked", "type", e.Type, "panic", r)
		}
	}()
	h(e)
}

// SubscriberCount returns the number of subscribers for an event type.
func (n *Notifier) SubscriberCount(t EventType) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subs[t])
}
