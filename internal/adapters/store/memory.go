package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dkeye/chatrelay/internal/domain"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	messages []domain.ChatMessage
	authors  map[string]struct{}
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		authors: make(map[string]struct{}),
		now:     time.Now,
	}
}

func (s *MemoryStore) FetchAll(context.Context) ([]domain.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, username, text string) (domain.ChatMessage, error) {
	msg := domain.ChatMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Message:   text,
		CreatedAt: s.now().UTC(),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	s.authors[username] = struct{}{}
	return msg, nil
}

func (s *MemoryStore) IsUsernameTaken(_ context.Context, username string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.authors[username]
	return ok, nil
}

func (s *MemoryStore) Close() error { return nil }
