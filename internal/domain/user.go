package domain

import (
	"bytes"
	"encoding/json"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "seller"
	RoleCustomer Role = "customer"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleCustomer:
		return true
	}
	return false
}

type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// Valid reports whether s is one of the statuses the platform accepts.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Image is an uploaded asset. The platform returns either a bare URL or an
// object carrying the original and thumbnail URLs.
type Image struct {
	URL      string `json:"url,omitempty"`
	ThumbURL string `json:"thumbUrl,omitempty"`
}

func (i *Image) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*i = Image{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var url string
		if err := json.Unmarshal(data, &url); err != nil {
			return err
		}
		*i = Image{URL: url, ThumbURL: url}
		return nil
	}
	type plain Image
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Image(p)
	return nil
}

// Best returns the thumbnail when present, otherwise the original URL.
func (i Image) Best() string {
	if i.ThumbURL != "" {
		return i.ThumbURL
	}
	return i.URL
}

// UserProfile is the identity record shared by the session, the roster and
// both sides of a chat message.
type UserProfile struct {
	ID      string `json:"_id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Status  Status `json:"status,omitempty"`
	Gender  string `json:"gender,omitempty"`
	Address string `json:"address,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Image   Image  `json:"image"`
}
