package allocator

import (
	"context"
	"sync"

	id "carelink/pkg/domain"
)

// InMemoryStore keeps namespace counters behind a mutex. The lock makes the
// increment linearizable, matching what Redis INCR and the conditional SQL
// update give the other implementations.
type InMemoryStore struct {
	mu       sync.Mutex
	counters map[id.Namespace]uint64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{counters: make(map[id.Namespace]uint64)}
}

func (s *InMemoryStore) Next(_ context.Context, ns id.Namespace) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[ns]++
	return s.counters[ns], nil
}
