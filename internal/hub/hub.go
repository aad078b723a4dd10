package hub

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atikulmunna/pulse/internal/stream"
)

const subscriberBuffer = 1024

// Hub fans stream events out to every subscriber. Consumers never talk to
// each other; the transport's event stream is their only shared input.
type Hub struct {
	input       <-chan stream.Event
	logger      *zap.Logger
	mu          sync.RWMutex
	subscribers []chan stream.Event
	dropped     int64
}

// New creates a Hub that reads from input.
func New(input <-chan stream.Event, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		input:  input,
		logger: logger,
	}
}

// Subscribe returns a buffered channel that receives every event.
// It must be called before Start to see the first events.
func (h *Hub) Subscribe() <-chan stream.Event {
	ch := make(chan stream.Event, subscriberBuffer)
	h.mu.Lock()
	h.subscribers = append(h.subscribers, ch)
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a channel returned by Subscribe.
func (h *Hub) Unsubscribe(sub <-chan stream.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, ch := range h.subscribers {
		if ch == sub {
			close(ch)
			h.subscribers = append(h.subscribers[:i], h.subscribers[i+1:]...)
			return
		}
	}
}

// Dropped returns the number of events lost to slow consumers.
func (h *Hub) Dropped() int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Start broadcasts until ctx is cancelled or input is closed, then closes
// every subscriber channel.
func (h *Hub) Start(ctx context.Context) {
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-h.input:
			if !ok {
				return
			}
			h.broadcast(ev)
		}
	}
}

// broadcast never blocks; a full subscriber misses the event.
func (h *Hub) broadcast(ev stream.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			h.dropped++
			h.logger.Warn("dropped event for slow consumer", zap.Int64("total_dropped", h.dropped))
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subscribers {
		close(ch)
	}
	h.subscribers = nil
}
