package ws

import (
	"sync"

	"github.com/pulsemeet/pulsemeet/internal/infrastructure/logging"
)

// Hub tracks live transport connections by connection id and is the relay's
// Emitter. Emissions to ids with no live connection are dropped, which covers
// the window where a participant is still registered but its socket is gone.
type Hub struct {
	logger logging.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

func NewHub(logger logging.Logger) *Hub {
	return &Hub{
		logger:  logger,
		clients: make(map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
}

// unregister removes the client if it still owns its id slot and closes its
// send queue. Closing under the write lock cannot overlap an Emit, which
// sends under the read lock.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if h.clients[c.ID] == c {
		delete(h.clients, c.ID)
	}
	c.closeSend()
	h.mu.Unlock()
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.clients)
}

// Emit implements relay.Emitter.
func (h *Hub) Emit(connectionID string, event string, data any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.clients[connectionID]
	if !ok {
		return
	}

	if !c.Send(&OutboundMessage{Type: event, Data: data}) {
		h.logger.Warn(logging.Signaling, logging.Transport, "send buffer full, message dropped", map[logging.ExtraKey]any{
			logging.ConnectionId: connectionID,
			"event":              event,
		})
	}
}
