package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/shopdesk/shopdesk/internal/domain"
)

type UserService struct{ Resource[domain.UserProfile] }

// Users lists on /v1/user but addresses single users under /v1/users.
func (c *Client) Users() UserService {
	return UserService{newResource[domain.UserProfile](c, "/v1/user", "/v1/users")}
}

// OrderFilter narrows an order listing. Zero values are omitted.
type OrderFilter struct {
	ListParams
	PaidOnly bool
	From     time.Time
	To       time.Time
}

type OrderService struct{ c *Client }

func (c *Client) Orders() OrderService {
	return OrderService{c: c}
}

func (s OrderService) List(ctx context.Context, f OrderFilter) (*Page[domain.Order], error) {
	q := f.values()
	if f.PaidOnly {
		q.Set("isPaid", strconv.FormatBool(true))
	}
	if !f.From.IsZero() {
		q.Set("startDate", f.From.UTC().Format(time.RFC3339))
	}
	if !f.To.IsZero() {
		q.Set("endDate", f.To.UTC().Format(time.RFC3339))
	}
	return list[domain.Order](ctx, s.c, "/v1/order", q)
}

// MessageService reads and writes one-to-one chat messages.
type MessageService struct{ c *Client }

func (c *Client) Messages() MessageService {
	return MessageService{c: c}
}

// List returns one page of the conversation with counterpart, newest first.
func (s MessageService) List(ctx context.Context, counterpart string, page, limit int) (*Page[domain.Message], error) {
	if counterpart == "" {
		return nil, invalid("counterpart is required")
	}
	q := ListParams{Page: page, Limit: limit}.values()
	q.Set("counterpart", counterpart)
	return list[domain.Message](ctx, s.c, "/v1/messages", q)
}

// Send posts a message to receiver. Empty text is passed through unchanged.
func (s MessageService) Send(ctx context.Context, receiver, text string) (*domain.Message, error) {
	if receiver == "" {
		return nil, invalid("receiver is required")
	}
	req, err := jsonRequest(http.MethodPost, "/v1/messages", map[string]string{
		"receiver": receiver,
		"message":  text,
	})
	if err != nil {
		return nil, err
	}
	var m domain.Message
	if err := s.c.call(ctx, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
