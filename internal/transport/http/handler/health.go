package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ConnectionCounter reports how many real-time connections this process holds.
type ConnectionCounter interface {
	Len() int
}

// HealthHandler handles health-check endpoints.
type HealthHandler struct {
	conns ConnectionCounter
}

func NewHealthHandler(conns ConnectionCounter) *HealthHandler { return &HealthHandler{conns: conns} }

type statsResponse struct {
	Connections int `json:"connections"`
}

func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	switch chi.URLParam(r, "action") {
	case "ping":
		writeJSON(w, http.StatusOK, MessageEnvelope{Message: "pong"})
	case "stats":
		n := 0
		if h.conns != nil {
			n = h.conns.Len()
		}
		writeJSON(w, http.StatusOK, statsResponse{Connections: n})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}
