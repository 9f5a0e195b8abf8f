// Package notify fans out view-change events to in-process subscribers
// and, optionally, to a NATS subject for external consumers.
package notify

import "sync"

// ViewChange describes one derived-view update.
type ViewChange struct {
	Count      int    `json:"count"`
	TotalPages int    `json:"total_pages"`
	GeneratedAt string `json:"generated_at"`
}

// Notifier receives view-change events. Implementations must not block.
type Notifier interface {
	ViewChanged(change ViewChange)
}

// Hub is an in-process notifier: subscribers receive change events on
// buffered channels. A subscriber that falls behind misses intermediate
// updates rather than blocking the engine.
type Hub struct {
	mu   sync.Mutex
	subs map[chan ViewChange]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[chan ViewChange]struct{})}
}

// Subscribe registers a listener channel. The returned cancel func
// unregisters and closes it.
func (h *Hub) Subscribe() (<-chan ViewChange, func()) {
	ch := make(chan ViewChange, 8)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
		h.mu.Unlock()
	}

	return ch, cancel
}

// ViewChanged delivers the change to every subscriber without blocking.
func (h *Hub) ViewChanged(change ViewChange) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range h.subs {
		select {
		case ch <- change:
		default:
			// Slow subscriber; drop rather than stall the feed.
		}
	}
}

// Multi fans a change out to several notifiers.
type Multi []Notifier

func (m Multi) ViewChanged(change ViewChange) {
	for _, n := range m {
		n.ViewChanged(change)
	}
}
