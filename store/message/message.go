package message

import (
	"context"
	"errors"
	"time"
)

// Message is a stored chat message between two users.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

var (
	ErrSameParticipant  = errors.New("sender and receiver must differ")
	ErrEmptyParticipant = errors.New("sender and receiver are required")
)

// Store defines message persistence operations.
type Store interface {
	// Create stores m, opening the pair's conversation on first use.
	Create(ctx context.Context, m *Message) error
	// ListBetween returns one page of the conversation between a and b,
	// newest first, and the total number of messages in it.
	ListBetween(ctx context.Context, a, b string, page, limit int) ([]Message, int, error)
}

// pair orders two user ids so a conversation has one key regardless of
// direction.
func pair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

func validate(m *Message) error {
	if m.SenderID == "" || m.ReceiverID == "" {
		return ErrEmptyParticipant
	}
	if m.SenderID == m.ReceiverID {
		return ErrSameParticipant
	}
	return nil
}

func window(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	return limit, (page - 1) * limit
}
