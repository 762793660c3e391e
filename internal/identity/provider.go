// Package identity holds the authenticated user for the lifetime of a
// console process.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/domain"
)

var (
	ErrNotLoggedIn    = errors.New("not logged in")
	ErrSessionExpired = errors.New("session has expired")
)

// ProfileLoader fetches the profile belonging to the current token.
type ProfileLoader interface {
	Me(ctx context.Context) (*domain.UserProfile, error)
}

// Provider exposes the authenticated identity read-only. Establish and Clear
// are its only writers.
type Provider struct {
	mu      sync.RWMutex
	profile *domain.UserProfile
	token   string
}

func NewProvider() *Provider {
	return &Provider{}
}

// Token implements api.TokenSource.
func (p *Provider) Token() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token
}

// Profile returns a copy of the authenticated profile.
func (p *Provider) Profile() (domain.UserProfile, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return domain.UserProfile{}, false
	}
	return *p.profile, true
}

// UserID is the authenticated user's id, or empty when logged out.
func (p *Provider) UserID() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.profile == nil {
		return ""
	}
	return p.profile.ID
}

func (p *Provider) LoggedIn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.profile != nil
}

// SetToken installs a token before its profile is known, so the profile
// request itself is authenticated.
func (p *Provider) SetToken(token string) {
	p.mu.Lock()
	p.token = token
	p.mu.Unlock()
}

// Establish records a verified session.
func (p *Provider) Establish(token string, profile domain.UserProfile) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = token
	p.profile = &profile
}

func (p *Provider) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = ""
	p.profile = nil
}

// Bootstrap restores the session stored in sess: it rejects expired tokens
// locally, then asks the server who the token belongs to.
func (p *Provider) Bootstrap(ctx context.Context, sess *Session, loader ProfileLoader, now time.Time) error {
	if sess == nil || sess.Token == "" {
		return ErrNotLoggedIn
	}
	if claims, err := auth.Inspect(sess.Token); err == nil && claims.Expired(now) {
		return ErrSessionExpired
	}

	p.SetToken(sess.Token)
	profile, err := loader.Me(ctx)
	if err != nil {
		p.Clear()
		return fmt.Errorf("load profile: %w", err)
	}
	p.Establish(sess.Token, *profile)
	return nil
}
