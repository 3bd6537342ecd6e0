package audit

import (
	"context"
	"sync"

	id "carelink/pkg/domain"
)

// InMemoryStore keeps entries per sitter in append order.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries map[id.UserID][]Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{entries: make(map[id.UserID][]Entry)}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[entry.SitterID] = append(s.entries[entry.SitterID], entry)
	return nil
}

func (s *InMemoryStore) ListBySitter(_ context.Context, sitterID id.UserID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Entry{}, s.entries[sitterID]...), nil
}
