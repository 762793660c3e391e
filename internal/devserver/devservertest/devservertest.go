// Package devservertest starts an in-memory development backend for tests.
package devservertest

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/devserver"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/store/message"
	"github.com/shopdesk/shopdesk/store/user"
)

const (
	Secret = "devservertest-secret"
	Issuer = "devservertest"
)

type Env struct {
	Server   *devserver.Server
	HTTP     *httptest.Server
	Users    *user.MemoryStore
	Messages *message.MemoryStore
	// BaseURL is the API root a console client is configured with.
	BaseURL string
	// PushURL is the websocket endpoint.
	PushURL string
}

// New starts a backend seeded with seeds. It is shut down when the test ends.
func New(t testing.TB, seeds ...config.SeedUser) *Env {
	t.Helper()

	users := user.NewMemoryStore()
	messages := message.NewMemoryStore()
	srv := devserver.New(devserver.Deps{
		Users:    users,
		Messages: messages,
		Auth:     auth.NewAuthenticator(Secret, Issuer, time.Hour),
		TokenTTL: time.Hour,
		Logger:   log.Nop(),
	})

	if err := srv.Seed(context.Background(), seeds); err != nil {
		t.Fatalf("seed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.Run(ctx)

	hs := httptest.NewServer(srv.Handler())
	t.Cleanup(hs.Close)

	return &Env{
		Server:   srv,
		HTTP:     hs,
		Users:    users,
		Messages: messages,
		BaseURL:  hs.URL + devserver.APIPrefix,
		PushURL:  "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws",
	}
}

// UserID returns the id of the seeded account with email.
func (e *Env) UserID(t testing.TB, email string) string {
	t.Helper()
	u, err := e.Users.GetByEmail(context.Background(), email)
	if err != nil {
		t.Fatalf("lookup %s: %v", email, err)
	}
	return u.ID
}
