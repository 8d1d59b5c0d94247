package domain

import "time"

// Audience is either one user or all staff.
type Audience struct {
	UserID string `json:"user_id,omitempty" validate:"required_without=Staff,excluded_with=Staff"`
	Staff  bool   `json:"staff,omitempty"`
}

func StaffAudience() Audience { return Audience{Staff: true} }

func UserAudience(userID string) Audience { return Audience{UserID: userID} }

// NotificationRequest is what business services hand to the messaging producer API.
// It is never stored as such; it becomes a Message.
type NotificationRequest struct {
	Text     string            `json:"text" validate:"required,max=4096"`
	Audience Audience          `json:"audience"`
	Metadata map[string]string `json:"metadata,omitempty" validate:"omitempty,max=32"`
}

// NewMessage builds the Message the request stands for. Id and timestamp are left to the store.
func (r NotificationRequest) NewMessage() *Message {
	m := &Message{Text: r.Text, Metadata: r.Metadata}
	if r.Audience.Staff {
		m.ForEmployee = true
		return m
	}
	recipient := r.Audience.UserID
	m.RecipientID = &recipient
	return m
}

// PushPayload is the provider-neutral body of a push notification.
type PushPayload struct {
	MessageID string            `json:"message_id"`
	Text      string            `json:"text"`
	CreatedAt time.Time         `json:"created"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func NewPushPayload(m *Message) PushPayload {
	return PushPayload{
		MessageID: m.MessageID,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
		Metadata:  m.Metadata,
	}
}
