package broadcast

import (
	"sync"

	"go.uber.org/zap"

	doors "doorwatch/internal/doors/domain"
	"doorwatch/internal/observability/metrics"
)

const subscriberBuffer = 16

// Hub fans door updates out to subscribers. A subscriber whose buffer is
// full misses that update.
type Hub struct {
	mu      sync.Mutex
	clients map[chan doors.DoorUpdate]struct{}
	logger  *zap.Logger
}

// NewHub constructs a hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[chan doors.DoorUpdate]struct{}),
		logger:  logger.Named("hub"),
	}
}

// Publish implements doors.Publisher.
func (h *Hub) Publish(update doors.DoorUpdate) {
	if h == nil {
		return
	}
	h.mu.Lock()
	clients := make([]chan doors.DoorUpdate, 0, len(h.clients))
	for ch := range h.clients {
		clients = append(clients, ch)
	}
	h.mu.Unlock()

	skipped := 0
	for _, ch := range clients {
		if !h.deliver(ch, update) {
			skipped++
		}
	}
	metrics.IncBroadcast(skipped)
	h.logger.Debug("door update broadcast",
		zap.String("door_state", update.DoorState),
		zap.String("timestamp", update.Timestamp),
		zap.Int("clients", len(clients)),
		zap.Int("skipped", skipped),
	)
}

// deliver sends without blocking. The channel may be closed concurrently by
// Unsubscribe, so the send happens under the lock.
func (h *Hub) deliver(ch chan doors.DoorUpdate, update doors.DoorUpdate) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; !ok {
		return true
	}
	select {
	case ch <- update:
		return true
	default:
		return false
	}
}

// Subscribe registers a new client channel.
func (h *Hub) Subscribe() chan doors.DoorUpdate {
	if h == nil {
		return nil
	}
	ch := make(chan doors.DoorUpdate, subscriberBuffer)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

// Unsubscribe removes and closes a client channel.
func (h *Hub) Unsubscribe(ch chan doors.DoorUpdate) {
	if h == nil || ch == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
}

// Clients returns the number of subscribers.
func (h *Hub) Clients() int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}
