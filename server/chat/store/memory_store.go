package store

import (
	"context"
	"sort"
	"sync"

	"chatbot_server/server/chat/domain"
)

type MemoryStore struct {
	mu    sync.RWMutex
	turns map[string][]domain.Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{turns: map[string][]domain.Turn{}}
}

func (s *MemoryStore) Setup(context.Context) error {
	return nil
}

func (s *MemoryStore) SaveTurn(_ context.Context, turn domain.Turn) error {
	if err := validateTurn(turn); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns[turn.ConversationID] = append(s.turns[turn.ConversationID], turn)
	return nil
}

func (s *MemoryStore) History(_ context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	items := s.sorted(conversationID)
	if limit = normalizeLimit(limit); len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *MemoryStore) Recent(_ context.Context, conversationID string, limit int) ([]domain.Turn, error) {
	items := s.sorted(conversationID)
	if limit = normalizeLimit(limit); len(items) > limit {
		items = items[len(items)-limit:]
	}
	return items, nil
}

func (s *MemoryStore) sorted(conversationID string) []domain.Turn {
	s.mu.RLock()
	items := append([]domain.Turn{}, s.turns[conversationID]...)
	s.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	return items
}
