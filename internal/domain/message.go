package domain

import "time"

// Message is a single chat message between two users. Messages are never
// edited or deleted once created.
type Message struct {
	ID        string      `json:"_id"`
	Sender    UserProfile `json:"sender"`
	Receiver  UserProfile `json:"receiver"`
	Body      string      `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	Revision  int         `json:"__v"`
}

// Involves reports whether userID is the sender or the receiver.
func (m Message) Involves(userID string) bool {
	return m.Sender.ID == userID || m.Receiver.ID == userID
}

// CounterpartOf returns the side of the message that is not selfID.
func (m Message) CounterpartOf(selfID string) UserProfile {
	if m.Sender.ID == selfID {
		return m.Receiver
	}
	return m.Sender
}

// Pagination describes the window a list response covers.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// Pages returns the number of pages needed to hold Total items.
func (p Pagination) Pages() int {
	if p.Limit <= 0 || p.Total <= 0 {
		return 0
	}
	return (p.Total + p.Limit - 1) / p.Limit
}
