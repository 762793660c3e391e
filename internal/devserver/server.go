// Package devserver is a small stand-in for the platform backend. It serves
// the login, user and message endpoints the console needs plus the push
// channel, so the console can be exercised end to end without the real
// platform.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/store/message"
	"github.com/shopdesk/shopdesk/store/user"
)

// APIPrefix is where the REST endpoints are mounted.
const APIPrefix = "/api"

var errUnauthorized = errors.New("unauthorized")

type Deps struct {
	Users    user.Store
	Messages message.Store
	Auth     *auth.Authenticator
	TokenTTL time.Duration
	WS       WSConfig
	Logger   zerolog.Logger
}

type Server struct {
	users    user.Store
	messages message.Store
	auth     *auth.Authenticator
	tokenTTL time.Duration
	hub      *Hub
	ws       WSConfig
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func New(d Deps) *Server {
	ws := d.WS
	if ws.PongWait <= 0 {
		ws = DefaultWSConfig()
	}
	return &Server{
		users:    d.Users,
		messages: d.Messages,
		auth:     d.Auth,
		tokenTTL: d.TokenTTL,
		hub:      NewHub(ws, d.Logger),
		ws:       ws,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: d.Logger,
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Run drives the push hub until ctx is done.
func (s *Server) Run(ctx context.Context) {
	s.hub.Run(ctx)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+APIPrefix+"/v1/auth/login", s.handleLogin)
	mux.HandleFunc("GET "+APIPrefix+"/v1/auth/me", s.handleMe)
	mux.HandleFunc("GET "+APIPrefix+"/v1/user", s.handleListUsers)
	mux.HandleFunc("GET "+APIPrefix+"/v1/users/{id}", s.handleGetUser)
	mux.HandleFunc("GET "+APIPrefix+"/v1/messages", s.handleListMessages)
	mux.HandleFunc("POST "+APIPrefix+"/v1/messages", s.handleSendMessage)
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return log.HTTPMiddleware(s.logger)(mux)
}

// Seed creates activated accounts. Accounts whose email already exists are
// left untouched.
func (s *Server) Seed(ctx context.Context, seeds []config.SeedUser) error {
	for _, seed := range seeds {
		role := domain.Role(strings.ToLower(seed.Role))
		if role == "" {
			role = domain.RoleAdmin
		}
		if !role.Valid() {
			return fmt.Errorf("seed %s: unknown role %q", seed.Email, seed.Role)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("seed %s: %w", seed.Email, err)
		}
		u := &user.User{
			Name:         seed.Name,
			Email:        seed.Email,
			PasswordHash: string(hash),
			Role:         role,
			Status:       domain.StatusActive,
			Activated:    true,
		}
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, user.ErrEmailTaken) {
				continue
			}
			return fmt.Errorf("seed %s: %w", seed.Email, err)
		}
		s.logger.Info().Str(log.FieldUserID, u.ID).Str("email", u.Email).Msg("seeded user")
	}
	return nil
}

func bearer(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// authenticate resolves the request's bearer token to a user.
func (s *Server) authenticate(r *http.Request, token string) (*user.User, error) {
	if token == "" {
		return nil, errUnauthorized
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(r.Context(), claims.UserID())
	if err != nil {
		return nil, err
	}
	if u.Status == domain.StatusInactive {
		return nil, errUnauthorized
	}
	return u, nil
}

// requireUser writes 401 and returns nil when the request is not authenticated.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) *user.User {
	u, err := s.authenticate(r, bearer(r))
	if err != nil {
		if !errors.Is(err, errUnauthorized) && !errors.Is(err, auth.ErrInvalidToken) &&
			!errors.Is(err, auth.ErrExpiredToken) && !errors.Is(err, user.ErrUserNotFound) {
			logger := log.Ctx(r.Context())
			logger.Error().Err(err).Msg("authenticate failed")
			writeError(w, r, http.StatusInternalServerError, "Internal server error")
			return nil
		}
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
		return nil
	}
	return u
}
