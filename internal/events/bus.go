package events

import (
	"log/slog"
	"sync"
	"time"
)

// Type classifies a session-change notification.
type Type string

const (
	SignedIn  Type = "signed_in"
	SignedOut Type = "signed_out"
	Refreshed Type = "refreshed"
)

// Event is a session-change notification: sign-in, sign-out, or token
// refresh.
type Event struct {
	Type      Type      `json:"type"`
	UserID    string    `json:"user_id,omitempty"`
	SessionID string    `json:"session_id,omitempty"`
	Token     string    `json:"token,omitempty"`
	At        time.Time `json:"at"`
}

// Bus fans session-change events out to in-process subscribers. Slow
// subscribers drop events rather than block publishers.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Subscribe registers a new subscriber. The returned stop function
// unregisters it and closes the channel.
func (b *Bus) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	stop := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, stop
}

// Publish delivers an event to every subscriber.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			slog.Warn("dropping session event for slow subscriber", "subscriber", id, "event", ev.Type)
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
