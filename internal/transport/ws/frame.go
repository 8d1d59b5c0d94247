package ws

import "github.com/go-delivery-messaging/internal/domain"

// Events exchanged over the connection.
const (
	EventLogin    = "LOGIN"
	EventLogout   = "LOGOUT"
	EventLoginOK  = "LOGIN_OK"
	EventLogoutOK = "LOGOUT_OK"
	EventMessage  = "MESSAGE"
	EventError    = "ERROR"
)

// inbound is a client frame: {"event":"LOGIN","token":"<jwt>"} or {"event":"LOGOUT"}.
type inbound struct {
	Event string `json:"event"`
	Token string `json:"token,omitempty"`
}

// Frame is what the server writes to a connection.
type Frame struct {
	Event     string              `json:"event"`
	SessionID string              `json:"session_id,omitempty"`
	Message   *domain.PushPayload `json:"message,omitempty"`
	Error     string              `json:"error,omitempty"`
}

func errorFrame(msg string) Frame { return Frame{Event: EventError, Error: msg} }
