package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-delivery-messaging/internal/domain"
	"github.com/go-delivery-messaging/internal/transport/http/middleware"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SessionRequest is the body of subscribe and unsubscribe calls.
type SessionRequest struct {
	SessionID string `json:"session_id" validate:"required,max=1024"`
}

// CreateNotificationRequest is the body of POST /notifications. Without user_id
// the notification goes to staff.
type CreateNotificationRequest struct {
	UserID   string            `json:"user_id,omitempty"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func (r CreateNotificationRequest) toDomain() domain.NotificationRequest {
	req := domain.NotificationRequest{Text: r.Text, Metadata: r.Metadata, Audience: domain.StaffAudience()}
	if r.UserID != "" {
		req.Audience = domain.UserAudience(r.UserID)
	}
	return req
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// callerFrom returns the authenticated caller, writing 401 when there is none.
func callerFrom(w http.ResponseWriter, r *http.Request) (domain.Caller, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return domain.Caller{}, false
	}
	return domain.Caller{UserID: claims.UserID, Role: claims.Role}, true
}
