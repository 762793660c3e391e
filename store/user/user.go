package user

import (
	"context"
	"errors"
	"time"

	"github.com/shopdesk/shopdesk/internal/domain"
)

// User is an account as stored by the backend.
type User struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Role         domain.Role   `json:"role"`
	Status       domain.Status `json:"status"`
	Activated    bool          `json:"activated"`
	Phone        string        `json:"phone,omitempty"`
	Address      string        `json:"address,omitempty"`
	ImageURL     string        `json:"image_url,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Profile is the public view of u.
func (u *User) Profile() domain.UserProfile {
	return domain.UserProfile{
		ID:      u.ID,
		Name:    u.Name,
		Email:   u.Email,
		Role:    u.Role,
		Status:  u.Status,
		Phone:   u.Phone,
		Address: u.Address,
		Image:   domain.Image{URL: u.ImageURL, ThumbURL: u.ImageURL},
	}
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

// ListQuery selects a page of users. Search matches name or email; Exclude
// drops one user id from the result.
type ListQuery struct {
	Page    int
	Limit   int
	Search  string
	Exclude string
}

func (q ListQuery) normalize() ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	return q
}

func (q ListQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

// Store defines user persistence operations.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context, q ListQuery) ([]User, int, error)
}
