package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-delivery-messaging/internal/application/messaging"
	"github.com/go-delivery-messaging/internal/domain"
)

// Mailbox is the part of the messaging service behind the message endpoints.
type Mailbox interface {
	MarkAsRead(ctx context.Context, caller domain.Caller, messageID string) (*domain.Message, error)
	List(ctx context.Context, caller domain.Caller, q messaging.ListQuery) (*domain.MessagePage, error)
}

// MessageHandler serves the caller's mailbox.
type MessageHandler struct {
	svc Mailbox
}

func NewMessageHandler(svc Mailbox) *MessageHandler { return &MessageHandler{svc: svc} }

// List handles GET /messages?offset&limit&sort&unread.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, err := h.svc.List(r.Context(), caller, q)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *MessageHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerFrom(w, r)
	if !ok {
		return
	}
	m, err := h.svc.MarkAsRead(r.Context(), caller, chi.URLParam(r, "id"))
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseListQuery(r *http.Request) (messaging.ListQuery, error) {
	v := r.URL.Query()
	q := messaging.ListQuery{Sort: domain.SortNewestFirst}

	var err error
	if s := v.Get("offset"); s != "" {
		if q.Offset, err = strconv.Atoi(s); err != nil {
			return q, queryError("invalid offset")
		}
	}
	if s := v.Get("limit"); s != "" {
		if q.Limit, err = strconv.Atoi(s); err != nil {
			return q, queryError("invalid limit")
		}
	}
	switch s := domain.SortOrder(v.Get("sort")); s {
	case "":
	case domain.SortNewestFirst, domain.SortOldestFirst:
		q.Sort = s
	default:
		return q, queryError("sort must be asc or desc")
	}
	if s := v.Get("unread"); s != "" {
		if q.UnreadOnly, err = strconv.ParseBool(s); err != nil {
			return q, queryError("invalid unread flag")
		}
	}
	return q, nil
}
