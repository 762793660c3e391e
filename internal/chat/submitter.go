package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/internal/push"
)

// MessageSender stores a message on the server.
type MessageSender interface {
	Send(ctx context.Context, receiver, text string) (*domain.Message, error)
}

// Emitter publishes push events.
type Emitter interface {
	Emit(ctx context.Context, event string, payload interface{}) error
}

// Refresher reloads the displayed conversation.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Submitter owns the input draft and sends it to the active counterpart.
type Submitter struct {
	store    *Store
	sender   MessageSender
	emitter  Emitter
	self     Identity
	fallback Refresher
	logger   zerolog.Logger

	mu    sync.Mutex
	draft string
}

// NewSubmitter builds a submitter. fallback may be nil; when set it is asked
// to refresh if the push notification for a sent message cannot be emitted.
func NewSubmitter(store *Store, sender MessageSender, emitter Emitter, self Identity, fallback Refresher, opts ...Option) *Submitter {
	o := buildOptions(opts)
	return &Submitter{
		store:    store,
		sender:   sender,
		emitter:  emitter,
		self:     self,
		fallback: fallback,
		logger:   o.logger,
	}
}

func (s *Submitter) SetDraft(text string) {
	s.mu.Lock()
	s.draft = text
	s.mu.Unlock()
}

func (s *Submitter) Draft() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// Submit sends the draft to the active counterpart. The draft is cleared only
// after the server accepted the message, and only if it was not edited while
// the request was in flight. On failure the draft is kept for a retry.
func (s *Submitter) Submit(ctx context.Context) (*domain.Message, error) {
	active, ok := s.store.Active()
	if !ok {
		return nil, ErrNoActiveCounterpart
	}
	text := s.Draft()
	logger := s.logger.With().Str(log.FieldCounterpart, active.ID).Logger()

	msg, err := s.sender.Send(ctx, active.ID, text)
	if err != nil {
		logger.Warn().Err(err).Msg("send message failed")
		return nil, fmt.Errorf("send message: %w", err)
	}

	s.mu.Lock()
	if s.draft == text {
		s.draft = ""
	}
	s.mu.Unlock()

	sender := s.self.UserID()
	if sender == "" && msg != nil {
		sender = msg.Sender.ID
	}
	ev := push.MessageEvent{Sender: sender, Receiver: active.ID}
	if err := s.emitter.Emit(ctx, push.EventNewMessageSent, ev); err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, push.EventNewMessageSent).Msg("notify failed, refreshing locally")
		if s.fallback != nil {
			_ = s.fallback.Refresh(ctx)
		}
	}
	return msg, nil
}
