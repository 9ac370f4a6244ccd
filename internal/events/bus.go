// Package events provides the publish-subscribe fan-out of race updates to
// connected viewer sessions.
package events

import (
	"sync"

	"github.com/trackside/racectl/internal/models"
)

const sessionBufferSize = 16

// Bus is a non-blocking publish-subscribe event bus. Each subscription is
// one viewer session; a session that is slow to consume has events dropped
// rather than blocking the race-control path.
type Bus struct {
	mu       sync.Mutex
	sessions map[string]chan models.Event
}

// NewBus creates a new event bus with no sessions.
func NewBus() *Bus {
	return &Bus{
		sessions: make(map[string]chan models.Event),
	}
}

// Subscribe registers a viewer session under the given ID. The returned
// channel receives every subsequent race event. Call Unsubscribe when the
// session ends.
func (b *Bus) Subscribe(id string) <-chan models.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan models.Event, sessionBufferSize)
	b.sessions[id] = ch
	return ch
}

// Unsubscribe removes a session and closes its channel. Unknown IDs are a
// no-op, so transport handlers may call it twice on teardown.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.sessions[id]; ok {
		delete(b.sessions, id)
		close(ch)
	}
}

// Publish delivers an event to every session. If a session's buffer is full
// the event is dropped for that session only (non-blocking).
func (b *Bus) Publish(ev models.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.sessions {
		select {
		case ch <- ev:
		default:
			// Drop for slow sessions
		}
	}
}

// SessionCount returns the current number of connected sessions.
func (b *Bus) SessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
