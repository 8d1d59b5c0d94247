package domain

import "time"

// PushSession binds a connection or device identifier to the user that owns it.
// A user may hold any number of sessions; the identifier is unique.
type PushSession struct {
	SessionID string    `json:"id" dynamodbav:"session_id"`
	UserID    string    `json:"user_id" dynamodbav:"user_id"`
	Role      string    `json:"role" dynamodbav:"role"`
	CreatedAt time.Time `json:"created" dynamodbav:"created_at"`
	ExpiresAt int64     `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
