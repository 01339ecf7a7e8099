// Package events provides the raffle's fire-and-forget notification bus.
package events

import (
	"sync"
	"time"
)

// Type identifies a notification kind.
type Type string

const (
	// TypeEntered is published when a participant joins the round.
	TypeEntered Type = "raffle.entered"
	// TypeWinnerRequested is published when a draw has been triggered and
	// a randomness request issued.
	TypeWinnerRequested Type = "raffle.winner_requested"
	// TypeWinnerPicked is published when a round settles on a winner.
	TypeWinnerPicked Type = "raffle.winner_picked"
)

// Event is a single notification. Events are observability signals, not
// queryable state.
type Event struct {
	Type    Type           `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

// Bus fans events out to subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan Event
	next int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan Event)}
}

// Publish delivers evt to every subscriber that has buffer room.
func (b *Bus) Publish(typ Type, payload map[string]any) {
	evt := Event{Type: typ, Payload: payload, At: time.Now().UTC()}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Subscribe registers a new subscriber with the given buffer size and
// returns its channel plus a cancel function. Cancel closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}
