package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-delivery-messaging/internal/domain"
)

// Sender is the producer side of the messaging service.
type Sender interface {
	Send(ctx context.Context, req domain.NotificationRequest) (*domain.Message, error)
}

// NotificationHandler lets staff tools post notifications through HTTP.
type NotificationHandler struct {
	svc Sender
}

func NewNotificationHandler(svc Sender) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	m, err := h.svc.Send(r.Context(), req.toDomain())
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}
