// Package events fans committed ledger changes out to subscribers, so a
// client can re-read state after someone else changes it.
package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event types.
const (
	ItemChanged     = "item.changed"
	UnitsChanged    = "units.changed"
	RequestChanged  = "request.changed"
	TransferChanged = "transfer.changed"
	HoldingChanged  = "holding.changed"
	IncidentChanged = "incident.changed"
	UserChanged     = "user.changed"
)

// Event describes one committed change. It carries identifiers only;
// subscribers re-read what they need.
type Event struct {
	Type    string    `json:"type"`
	ID      int64     `json:"id,omitempty"`
	ItemID  int64     `json:"item_id,omitempty"`
	ActorID int64     `json:"actor_id,omitempty"`
	At      time.Time `json:"at"`
	Origin  string    `json:"origin,omitempty"`
}

// Publisher receives events after the change they describe has committed.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) {}

// Hub is an in-process broadcaster. Slow subscribers lose events rather
// than block the publisher.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	closed bool
	logger *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		subs:   make(map[chan Event]struct{}),
		logger: logger,
	}
}

// Subscribe registers a subscriber with the given buffer size. The returned
// cancel func unregisters it and closes the channel.
func (h *Hub) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}

	return ch, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}
}

// Close closes every subscriber channel and refuses new subscribers, which
// ends open event streams.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

// Publish delivers e to every subscriber without blocking.
func (h *Hub) Publish(_ context.Context, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- e:
		default:
			h.logger.Warn("dropping event for slow subscriber", zap.String("type", e.Type))
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
