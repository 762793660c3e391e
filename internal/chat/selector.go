package chat

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
)

// Identity reports who is logged in. identity.Provider satisfies it.
type Identity interface {
	UserID() string
}

// UserLister pages through platform users.
type UserLister interface {
	List(ctx context.Context, p api.ListParams) (*api.Page[domain.UserProfile], error)
}

// Selector owns the choice of conversation.
type Selector struct {
	store *Store
	self  Identity

	mu     sync.RWMutex
	roster []domain.UserProfile
}

func NewSelector(store *Store, self Identity) *Selector {
	return &Selector{store: store, self: self}
}

// Select makes p the active counterpart. Selecting the current counterpart
// again still resets the list and triggers a new fetch.
func (s *Selector) Select(p domain.UserProfile) error {
	if p.ID == "" {
		return ErrUnknownCounterpart
	}
	if self := s.self.UserID(); self != "" && p.ID == self {
		return ErrSelfConversation
	}
	s.store.selectCounterpart(p)
	return nil
}

// LoadRoster fetches the first page of users that can be chatted with.
// The authenticated user is left out.
func (s *Selector) LoadRoster(ctx context.Context, users UserLister, size int) ([]domain.UserProfile, error) {
	if size <= 0 {
		size = 50
	}
	self := s.self.UserID()
	page, err := users.List(ctx, api.ListParams{Page: 1, Limit: size, Exclude: self})
	if err != nil {
		return nil, err
	}
	roster := make([]domain.UserProfile, 0, len(page.Items))
	for _, u := range page.Items {
		if u.ID != self {
			roster = append(roster, u)
		}
	}

	s.mu.Lock()
	s.roster = roster
	s.mu.Unlock()
	return append([]domain.UserProfile(nil), roster...), nil
}

func (s *Selector) Roster() []domain.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.UserProfile(nil), s.roster...)
}

// SelectKey selects a roster entry by 1-based position, id, email, or
// case-insensitive name.
func (s *Selector) SelectKey(key string) (domain.UserProfile, error) {
	key = strings.TrimSpace(key)
	s.mu.RLock()
	p, ok := lookup(s.roster, key)
	s.mu.RUnlock()
	if !ok {
		return domain.UserProfile{}, ErrUnknownCounterpart
	}
	if err := s.Select(p); err != nil {
		return domain.UserProfile{}, err
	}
	return p, nil
}

func lookup(roster []domain.UserProfile, key string) (domain.UserProfile, bool) {
	if key == "" {
		return domain.UserProfile{}, false
	}
	if n, err := strconv.Atoi(key); err == nil && n >= 1 && n <= len(roster) {
		return roster[n-1], true
	}
	for _, u := range roster {
		if u.ID == key || strings.EqualFold(u.Email, key) {
			return u, true
		}
	}
	for _, u := range roster {
		if strings.EqualFold(u.Name, key) {
			return u, true
		}
	}
	return domain.UserProfile{}, false
}
