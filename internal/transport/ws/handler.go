package ws

import (
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Handler upgrades HTTP requests to websocket connections managed by a Hub.
// Authentication happens in-band with a LOGIN frame.
type Handler struct {
	hub        *Hub
	verifier   TokenVerifier
	subscriber Subscriber
	upgrader   websocket.Upgrader
}

// NewHandler returns a handler accepting the given origins ("*" allows any).
// Requests without an Origin header are always accepted.
func NewHandler(hub *Hub, verifier TokenVerifier, subscriber Subscriber, allowedOrigins []string) *Handler {
	return &Handler{
		hub:        hub,
		verifier:   verifier,
		subscriber: subscriber,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.hub.log.Debug("websocket upgrade failed", "err", err)
		return
	}
	c := newClient(uuid.NewString(), conn, h.hub, h.verifier, h.subscriber)
	h.hub.register(c)

	go c.writePump()
	go c.readPump()
}
