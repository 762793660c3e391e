package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/shopdesk/shopdesk/internal/api"
	"github.com/shopdesk/shopdesk/internal/domain"
	"github.com/shopdesk/shopdesk/internal/log"
	"github.com/shopdesk/shopdesk/internal/push"
)

const DefaultPageSize = 100

// MessageLister fetches a page of a conversation, newest first.
type MessageLister interface {
	List(ctx context.Context, counterpart string, page, limit int) (*api.Page[domain.Message], error)
}

// Subscriber is the part of the push bridge the synchronizer listens on.
type Subscriber interface {
	Connect(ctx context.Context) error
	On(event string, h push.Handler) func()
}

type options struct {
	logger   zerolog.Logger
	pageSize int
}

type Option func(*options)

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithPageSize sets how many messages a refresh fetches.
func WithPageSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.L(), pageSize: DefaultPageSize}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Synchronizer keeps the store's message list in line with the server for
// the active counterpart.
type Synchronizer struct {
	store    *Store
	lister   MessageLister
	push     Subscriber
	self     Identity
	pageSize int
	logger   zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	unsubs []func()
	wg     sync.WaitGroup
}

func NewSynchronizer(store *Store, lister MessageLister, sub Subscriber, self Identity, opts ...Option) *Synchronizer {
	o := buildOptions(opts)
	return &Synchronizer{
		store:    store,
		lister:   lister,
		push:     sub,
		self:     self,
		pageSize: o.pageSize,
		logger:   o.logger,
	}
}

// Refresh replaces the displayed list with the latest page for the active
// counterpart. A response that arrives after a newer refresh was issued, or
// after the counterpart changed, is dropped and ErrStaleResponse returned.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	seq, counterpart, ok := s.store.beginRefresh()
	if !ok {
		return ErrNoActiveCounterpart
	}
	logger := s.logger.With().
		Str(log.FieldCounterpart, counterpart.ID).
		Uint64(log.FieldSeq, seq).
		Logger()

	page, err := s.lister.List(ctx, counterpart.ID, 1, s.pageSize)
	if err != nil {
		if !s.store.failRefresh(seq, counterpart.ID, err) {
			logger.Debug().Err(err).Msg("discarding failed stale refresh")
			return ErrStaleResponse
		}
		logger.Warn().Err(err).Msg("refresh messages failed")
		return fmt.Errorf("refresh messages: %w", err)
	}

	msgs := chronological(page.Items, s.self.UserID())
	if !s.store.applyRefresh(seq, counterpart.ID, msgs, page.Pagination) {
		logger.Debug().Msg("discarding stale refresh")
		return ErrStaleResponse
	}
	logger.Debug().Int("count", len(msgs)).Msg("messages refreshed")
	return nil
}

// chronological reverses a newest-first page and drops messages that do not
// involve self.
func chronological(page []domain.Message, self string) []domain.Message {
	out := make([]domain.Message, 0, len(page))
	for i := len(page) - 1; i >= 0; i-- {
		if self != "" && !page[i].Involves(self) {
			continue
		}
		out = append(out, page[i])
	}
	return out
}

// Mount subscribes to message events, connects the push channel and starts
// following selection changes. It returns the push connection error, if any;
// the synchronizer stays mounted and still refreshes on selection.
func (s *Synchronizer) Mount(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, event := range []string{push.EventMessageReceived, push.EventSelfMessageReceived} {
		event := event
		s.unsubs = append(s.unsubs, s.push.On(event, func(f push.Frame) {
			s.onEvent(ctx, event, f)
		}))
	}

	// Handlers are in place before dialing so no early frame is missed.
	connErr := s.push.Connect(ctx)
	if connErr != nil {
		s.logger.Warn().Err(connErr).Msg("push channel unavailable")
	}

	watch, stop := s.store.Watch()
	s.unsubs = append(s.unsubs, stop)
	s.wg.Add(1)
	go s.followSelection(ctx, watch)

	return connErr
}

// Unmount stops listening and waits for in-flight refreshes. The push
// connection itself is left open.
func (s *Synchronizer) Unmount() {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.cancel = nil
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
	s.wg.Wait()
}

func (s *Synchronizer) followSelection(ctx context.Context, watch <-chan struct{}) {
	defer s.wg.Done()

	snap := s.store.Snapshot()
	last := snap.Selection
	if snap.HasActive {
		s.spawnRefresh(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-watch:
			snap := s.store.Snapshot()
			if snap.Selection == last {
				continue
			}
			last = snap.Selection
			if snap.HasActive {
				s.spawnRefresh(ctx)
			}
		}
	}
}

func (s *Synchronizer) onEvent(ctx context.Context, event string, f push.Frame) {
	if ev, ok := push.DecodeMessageEvent(f); ok {
		active, has := s.store.Active()
		if !has || !ev.Concerns(s.self.UserID(), active.ID) {
			return
		}
	}
	s.logger.Debug().Str(log.FieldEvent, event).Msg("message event")
	s.spawnRefresh(ctx)
}

func (s *Synchronizer) spawnRefresh(ctx context.Context) {
	s.mu.Lock()
	if s.cancel == nil || ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		// failures are recorded in the store and logged by Refresh
		_ = s.Refresh(ctx)
	}()
}
