package message

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps conversations in process memory.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[[2]string]string
	messages      map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[[2]string]string),
		messages:      make(map[string][]Message),
	}
}

func (s *MemoryStore) Create(ctx context.Context, m *Message) error {
	if err := validate(m); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	low, high := pair(m.SenderID, m.ReceiverID)
	key := [2]string{low, high}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.conversations[key]
	if !ok {
		id = uuid.NewString()
		s.conversations[key] = id
	}
	m.ConversationID = id
	s.messages[id] = append(s.messages[id], *m)
	return nil
}

func (s *MemoryStore) ListBetween(ctx context.Context, a, b string, page, limit int) ([]Message, int, error) {
	limit, offset := window(page, limit)
	low, high := pair(a, b)

	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.conversations[[2]string{low, high}]
	if !ok {
		return []Message{}, 0, nil
	}
	all := s.messages[id]
	total := len(all)

	out := make([]Message, 0, limit)
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, total, nil
}
