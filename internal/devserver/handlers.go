package devserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/internal/push"
	"github.com/shopdesk/shopdesk/store/message"
	"github.com/shopdesk/shopdesk/store/user"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		writeError(w, r, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if !u.Activated {
		writeError(w, r, http.StatusForbidden, "Account is not activated")
		return
	}

	token, err := s.auth.GenerateToken(u.ID, string(u.Role))
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to create session")
		return
	}
	writeJSON(w, r, http.StatusOK, envelope{
		Message: "Login successful",
		Data: map[string]interface{}{
			"accessToken": token,
			"expires_in":  int(s.tokenTTL.Seconds()),
		},
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u := s.requireUser(w, r)
	if u == nil {
		return
	}
	writeJSON(w, r, http.StatusOK, envelope{Data: u.Profile()})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	if s.requireUser(w, r) == nil {
		return
	}
	page, limit := pageParams(r, 10)
	users, total, err := s.users.List(r.Context(), user.ListQuery{
		Page:    page,
		Limit:   limit,
		Search:  r.URL.Query().Get("search"),
		Exclude: r.URL.Query().Get("exclude"),
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to list users")
		return
	}
	profiles := make([]domain.UserProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Profile())
	}
	writeList(w, r, profiles, domain.Pagination{Page: page, Limit: limit, Total: total})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	if s.requireUser(w, r) == nil {
		return
	}
	u, err := s.users.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, r, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, envelope{Data: u.Profile()})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	self := s.requireUser(w, r)
	if self == nil {
		return
	}
	counterpartID := r.URL.Query().Get("counterpart")
	if counterpartID == "" {
		writeError(w, r, http.StatusBadRequest, "counterpart is required")
		return
	}
	counterpart, err := s.users.GetByID(r.Context(), counterpartID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, r, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	page, limit := pageParams(r, 100)
	stored, total, err := s.messages.ListBetween(r.Context(), self.ID, counterpart.ID, page, limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	profiles := map[string]domain.UserProfile{
		self.ID:        self.Profile(),
		counterpart.ID: counterpart.Profile(),
	}
	out := make([]domain.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, toDomain(m, profiles))
	}
	writeList(w, r, out, domain.Pagination{Page: page, Limit: limit, Total: total})
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	self := s.requireUser(w, r)
	if self == nil {
		return
	}
	var req struct {
		Receiver string `json:"receiver"`
		Message  string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Receiver == self.ID {
		writeError(w, r, http.StatusBadRequest, "Cannot send a message to yourself")
		return
	}
	receiver, err := s.users.GetByID(r.Context(), req.Receiver)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			writeError(w, r, http.StatusNotFound, "Receiver not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	m := &message.Message{SenderID: self.ID, ReceiverID: receiver.ID, Body: req.Message}
	if err := s.messages.Create(r.Context(), m); err != nil {
		logger := log.Ctx(r.Context())
		logger.Error().Err(err).Msg("store message failed")
		writeError(w, r, http.StatusInternalServerError, "Failed to send message")
		return
	}

	profiles := map[string]domain.UserProfile{
		self.ID:     self.Profile(),
		receiver.ID: receiver.Profile(),
	}
	writeJSON(w, r, http.StatusCreated, envelope{Message: "Message sent", Data: toDomain(*m, profiles)})
}

func toDomain(m message.Message, profiles map[string]domain.UserProfile) domain.Message {
	sender, ok := profiles[m.SenderID]
	if !ok {
		sender = domain.UserProfile{ID: m.SenderID}
	}
	receiver, ok := profiles[m.ReceiverID]
	if !ok {
		receiver = domain.UserProfile{ID: m.ReceiverID}
	}
	return domain.Message{
		ID:        m.ID,
		Sender:    sender,
		Receiver:  receiver,
		Body:      m.Body,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.CreatedAt,
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = bearer(r)
	}
	u, err := s.authenticate(r, token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "Unauthorized")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger := log.Ctx(r.Context())
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(uuid.NewString(), u.ID, s.hub, conn, s.ws)
	if !s.hub.Register(client) {
		_ = conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump(s.handleFrame)
}

// handleFrame relays newMessageSent to both sides of the conversation. A
// client may only announce messages it sent itself.
func (s *Server) handleFrame(c *Client, data []byte) {
	var frame push.Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.logger.Debug().Err(err).Str(log.FieldConnID, c.ID).Msg("ignoring malformed frame")
		return
	}
	if frame.Event != push.EventNewMessageSent {
		return
	}
	ev, ok := push.DecodeMessageEvent(frame)
	if !ok || ev.Receiver == "" {
		return
	}
	if ev.Sender != c.UserID {
		s.logger.Warn().
			Str(log.FieldConnID, c.ID).
			Str(log.FieldUserID, c.UserID).
			Str("claimed_sender", ev.Sender).
			Msg("dropping event for another sender")
		return
	}

	received, err := encodeFrame(push.EventMessageReceived, ev)
	if err != nil {
		return
	}
	echoed, err := encodeFrame(push.EventSelfMessageReceived, ev)
	if err != nil {
		return
	}
	s.hub.Deliver(ev.Receiver, received)
	s.hub.Deliver(ev.Sender, echoed)
}

func encodeFrame(event string, payload interface{}) ([]byte, error) {
	f, err := push.NewFrame(event, payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(f)
}
