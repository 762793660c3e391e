// Package chat implements the active conversation: who is selected, which
// messages are shown, and how new messages are sent.
package chat

import (
	"errors"
	"sync"

	"github.com/shopdesk/shopdesk/internal/domain"
)

var (
	ErrNoActiveCounterpart = errors.New("no conversation selected")
	ErrSelfConversation    = errors.New("cannot open a conversation with yourself")
	ErrUnknownCounterpart  = errors.New("counterpart not in roster")
	ErrStaleResponse       = errors.New("response superseded by a newer request")
)

// Snapshot is a consistent copy of the store at one point in time.
type Snapshot struct {
	Active     domain.UserProfile
	HasActive  bool
	Messages   []domain.Message
	Pagination domain.Pagination
	LastError  error
	// Selection increases every time the active counterpart is replaced.
	Selection uint64
	// Version increases on every change.
	Version uint64
}

// Store is the state shared by the chat components. Selection writes come
// from Selector and list writes from Synchronizer; everyone else reads.
type Store struct {
	mu         sync.RWMutex
	active     *domain.UserProfile
	messages   []domain.Message
	pagination domain.Pagination
	lastErr    error
	issued     uint64
	selection  uint64
	version    uint64

	watchers    map[int]chan struct{}
	nextWatcher int
}

func NewStore() *Store {
	return &Store{watchers: make(map[int]chan struct{})}
}

func (s *Store) Active() (domain.UserProfile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return domain.UserProfile{}, false
	}
	return *s.active, true
}

// Messages returns the displayed list, oldest first.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Message(nil), s.messages...)
}

func (s *Store) Pagination() domain.Pagination {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pagination
}

// LastError is the error of the most recent applied refresh, or nil.
func (s *Store) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Messages:   append([]domain.Message(nil), s.messages...),
		Pagination: s.pagination,
		LastError:  s.lastErr,
		Selection:  s.selection,
		Version:    s.version,
	}
	if s.active != nil {
		snap.Active = *s.active
		snap.HasActive = true
	}
	return snap
}

// Watch returns a channel that receives a value after each change, and a
// function that stops the notifications. Bursts of changes coalesce into one
// notification; read Snapshot after waking.
func (s *Store) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	id := s.nextWatcher
	s.nextWatcher++
	s.watchers[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.watchers, id)
			s.mu.Unlock()
		})
	}
}

// changed must be called with mu held.
func (s *Store) changed() {
	s.version++
	for _, ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// selectCounterpart replaces the active counterpart and clears everything
// derived from the previous one. In-flight refreshes are invalidated.
func (s *Store) selectCounterpart(p domain.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = &p
	s.messages = nil
	s.pagination = domain.Pagination{}
	s.lastErr = nil
	s.issued++
	s.selection++
	s.changed()
}

// beginRefresh issues a new refresh sequence for the current counterpart.
func (s *Store) beginRefresh() (uint64, domain.UserProfile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return 0, domain.UserProfile{}, false
	}
	s.issued++
	return s.issued, *s.active, true
}

func (s *Store) current(seq uint64, counterpartID string) bool {
	return seq == s.issued && s.active != nil && s.active.ID == counterpartID
}

// applyRefresh installs a fetched page if seq is still the latest request
// for counterpartID.
func (s *Store) applyRefresh(seq uint64, counterpartID string, msgs []domain.Message, pag domain.Pagination) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(seq, counterpartID) {
		return false
	}
	s.messages = msgs
	s.pagination = pag
	s.lastErr = nil
	s.changed()
	return true
}

// failRefresh records err for the latest request and keeps the prior list.
func (s *Store) failRefresh(seq uint64, counterpartID string, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(seq, counterpartID) {
		return false
	}
	s.lastErr = err
	s.changed()
	return true
}
