package server

import (
	"sync"

	"market-stream/src/helpers"
	"market-stream/src/interfaces"
	"market-stream/src/logger"
	"market-stream/src/models"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub: registry of live websocket clients, addressed by connection id
// -----------------------------------------------------------------------------

type Hub struct {
	Logger *logger.Logger

	mu      sync.RWMutex
	clients map[string]*Client
}

var _ interfaces.ITransport = (*Hub)(nil)

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		Logger:  log,
		clients: make(map[string]*Client),
	}
}

// -----------------------------------------------------------------------------

// register wraps conn in a Client under a fresh connection id and starts its writer.
func (h *Hub) register(conn *websocket.Conn) *Client {
	client := newClient(uuid.NewString(), conn, h.Logger)

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	go client.writePump()
	return client
}

// unregister forgets the client; its writer stops once the connection is gone.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
	}
	h.mu.Unlock()

	client.shutdown()
}

func (h *Hub) get(connID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[connID]
	return c, ok
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// -----------------------------------------------------------------------------
// Transport implementation
// -----------------------------------------------------------------------------

func (h *Hub) IsOpen(connID string) bool {
	c, ok := h.get(connID)
	return ok && c.isOpen()
}

// Send enqueues msg for the client's writer. A full buffer is reported, not waited on.
func (h *Hub) Send(connID string, msg *models.MStreamMessage) error {
	c, ok := h.get(connID)
	if !ok {
		return helpers.ErrConnectionClosed
	}
	return c.enqueue(msg)
}

// Close flushes what is queued, sends a normal closure with reason and drops the connection.
func (h *Hub) Close(connID string, reason string) error {
	c, ok := h.get(connID)
	if !ok {
		return helpers.ErrConnectionClosed
	}
	c.closeWith(reason)
	return nil
}

// CloseAll closes every client; used on shutdown after sessions are gone.
func (h *Hub) CloseAll(reason string) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.closeWith(reason)
	}
}
