package domain

import (
	"fmt"
	"time"
)

// Message is a persisted in-app notification. A message addressed to a single
// user carries RecipientID; a staff broadcast has ForEmployee set and no recipient.
// Only Read changes after the message is stored.
type Message struct {
	MessageID   string            `json:"id" dynamodbav:"message_id"`
	RecipientID *string           `json:"recipient_id" dynamodbav:"recipient_id,omitempty"`
	Text        string            `json:"text" dynamodbav:"text"`
	ForEmployee bool              `json:"for_employee" dynamodbav:"for_employee"`
	Read        bool              `json:"read" dynamodbav:"read"`
	Metadata    map[string]string `json:"metadata,omitempty" dynamodbav:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"created" dynamodbav:"created_at"`
}

// Validate checks the audience invariant: a recipient is set iff the message is not for staff.
func (m *Message) Validate() error {
	hasRecipient := m.RecipientID != nil && *m.RecipientID != ""
	if hasRecipient == m.ForEmployee {
		return fmt.Errorf("message must target either one recipient or staff: %w", ErrBadRequest)
	}
	return nil
}

// MessageFilter selects a mailbox. Exactly one of RecipientID or ForEmployee is meaningful.
type MessageFilter struct {
	RecipientID string
	ForEmployee bool
	UnreadOnly  bool
}

// SortOrder orders query results by creation time.
type SortOrder string

const (
	SortNewestFirst SortOrder = "desc"
	SortOldestFirst SortOrder = "asc"
)

// MessageQuery is a paginated mailbox query. Zero Offset/Limit fall back to store defaults.
type MessageQuery struct {
	Filter MessageFilter
	Offset int
	Limit  int
	Sort   SortOrder
}

// MessagePage is one page of a mailbox plus the total number of matching messages.
type MessagePage struct {
	Count int       `json:"count"`
	Rows  []Message `json:"rows"`
}
