package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-delivery-messaging/internal/domain"
	"github.com/go-delivery-messaging/internal/pkg/validate"
)

// Subscriber is the part of the messaging service behind subscription endpoints.
type Subscriber interface {
	Subscribe(ctx context.Context, caller domain.Caller, sessionID string) error
	Unsubscribe(ctx context.Context, caller domain.Caller, sessionID string) error
}

// SubscriptionHandler registers and removes push sessions (device tokens) for the caller.
type SubscriptionHandler struct {
	svc Subscriber
}

func NewSubscriptionHandler(svc Subscriber) *SubscriptionHandler {
	return &SubscriptionHandler{svc: svc}
}

func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.svc.Subscribe)
}

func (h *SubscriptionHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.svc.Unsubscribe)
}

func (h *SubscriptionHandler) serve(w http.ResponseWriter, r *http.Request,
	op func(context.Context, domain.Caller, string) error) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	var req SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		httpError(w, err)
		return
	}
	if err := op(r.Context(), caller, req.SessionID); err != nil {
		httpError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
