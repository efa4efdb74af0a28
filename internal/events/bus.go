// Package events is a small in-process publish/subscribe bus keyed by
// user ID. The ranking core emits domain events (match created) and an
// external dispatcher decides the transport; the core never talks to a
// push service directly.
package events

import (
	"sync"
	"time"
)

// MatchCreated is emitted once per new match, to each participant's
// subscribers.
type MatchCreated struct {
	MatchID   string    `json:"match_id"`
	UserID    uint64    `json:"user_id"`
	PartnerID uint64    `json:"partner_id"`
	MatchedAt time.Time `json:"matched_at"`
}

// Bus fans MatchCreated events out to per-user subscribers. Publish
// never blocks: a subscriber with a full channel misses the event.
type Bus struct {
	mu   sync.RWMutex
	subs map[uint64][]chan MatchCreated
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uint64][]chan MatchCreated)}
}

// Subscribe registers a listener for one user's events. The returned
// cancel func removes the subscription and closes the channel.
func (b *Bus) Subscribe(userID uint64, buffer int) (<-chan MatchCreated, func()) {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan MatchCreated, buffer)

	b.mu.Lock()
	b.subs[userID] = append(b.subs[userID], ch)
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		chans := b.subs[userID]
		for i, c := range chans {
			if c == ch {
				b.subs[userID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
		if len(b.subs[userID]) == 0 {
			delete(b.subs, userID)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of ev.UserID.
func (b *Bus) Publish(ev MatchCreated) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[ev.UserID] {
		select {
		case ch <- ev:
		default:
			// slow subscriber; drop rather than block the core
		}
	}
}
