package engine

import (
	"log/slog"
	"sync"

	"github.com/roach88/liftfop/internal/notify"
)

// Hub fans notifications out to the displays of one platform.
//
// Publishing never blocks: a subscriber whose buffer is full misses the
// notification and the drop is logged. Notifications reach each
// subscriber in publication order.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan notify.Output
	next   int
	closed bool
	logger *slog.Logger
}

// NewHub creates a hub. A nil logger uses slog.Default().
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{subs: make(map[int]chan notify.Output), logger: logger}
}

// Subscribe registers a display. The returned function unsubscribes and
// closes the channel; calling it twice is safe.
func (h *Hub) Subscribe(buffer int) (<-chan notify.Output, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan notify.Output, buffer)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		return ch, func() {}
	}
	id := h.next
	h.next++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish delivers o to every subscriber that has room for it.
func (h *Hub) Publish(o notify.Output) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- o:
		default:
			h.logger.Warn("subscriber too slow, notification dropped",
				"subscriber", id,
				"notification", notify.Kind(o),
			)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close ends every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
