package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-delivery-messaging/internal/domain"
)

var (
	errNotConnected = errors.New("session is not connected")
	errQueueFull    = errors.New("send queue full")
	errClosed       = errors.New("connection closed")
)

// Hub tracks the live connections of this process and delivers pushes to them.
// It satisfies dispatch.LocalGateway: connection ids are session ids, and the
// staff topic is the set of connections whose user logged in with a staff role.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	staff   map[string]struct{}
	log     *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*Client),
		staff:   make(map[string]struct{}),
		log:     log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if cur, ok := h.clients[c.id]; ok && cur == c {
		delete(h.clients, c.id)
		delete(h.staff, c.id)
	}
	h.mu.Unlock()
}

func (h *Hub) client(id string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[id]
	return c, ok
}

// Owns reports whether sessionID is a connection held by this hub.
func (h *Hub) Owns(sessionID string) bool {
	_, ok := h.client(sessionID)
	return ok
}

// Len returns the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) PushToDevice(_ context.Context, sessionID string, p domain.PushPayload) error {
	c, ok := h.client(sessionID)
	if !ok {
		return fmt.Errorf("%s: %w", sessionID, errNotConnected)
	}
	return c.enqueue(Frame{Event: EventMessage, Message: &p})
}

// PushToTopic queues the message on every staff connection. A topic without
// members is not an error.
func (h *Hub) PushToTopic(_ context.Context, p domain.PushPayload) error {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.staff))
	for id := range h.staff {
		if c, ok := h.clients[id]; ok {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	var errs []error
	for _, c := range members {
		if err := c.enqueue(Frame{Event: EventMessage, Message: &p}); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.id, err))
		}
	}
	return errors.Join(errs...)
}

func (h *Hub) SubscribeToTopic(_ context.Context, sessionID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sessionID]; !ok {
		return fmt.Errorf("%s: %w", sessionID, errNotConnected)
	}
	h.staff[sessionID] = struct{}{}
	return nil
}

func (h *Hub) UnsubscribeFromTopic(_ context.Context, sessionID string) error {
	h.mu.Lock()
	delete(h.staff, sessionID)
	h.mu.Unlock()
	return nil
}

// Close drops every connection. Each client's read loop then runs its normal
// disconnect path.
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	for _, c := range clients {
		c.close()
	}
	h.log.Info("websocket hub closed", "connections", len(clients))
}
