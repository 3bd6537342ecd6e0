package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carelink/internal/verification"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// InMemoryRequestStore backs tests and local development. A single mutex
// guards both the request map and the per-sitter sequence counters, so the
// single-pending check and the sequence assignment are one atomic step.
type InMemoryRequestStore struct {
	mu        sync.RWMutex
	requests  map[id.RequestID]*verification.Request
	sequences map[id.UserID]uint64
}

func NewInMemoryRequestStore() *InMemoryRequestStore {
	return &InMemoryRequestStore{
		requests:  make(map[id.RequestID]*verification.Request),
		sequences: make(map[id.UserID]uint64),
	}
}

func copyRequest(req *verification.Request) *verification.Request {
	clone := *req
	clone.Documents.Secondary = append([]string(nil), req.Documents.Secondary...)
	if req.ReviewedAt != nil {
		at := *req.ReviewedAt
		clone.ReviewedAt = &at
	}
	if req.ReviewedBy != nil {
		by := *req.ReviewedBy
		clone.ReviewedBy = &by
	}
	return &clone
}

func (s *InMemoryRequestStore) CreateIfNonePending(_ context.Context, req *verification.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[req.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	for _, existing := range s.requests {
		if existing.SitterID == req.SitterID && existing.Status == verification.StatusPending {
			return sentinel.ErrAlreadyExists
		}
	}
	s.sequences[req.SitterID]++
	req.Sequence = s.sequences[req.SitterID]
	req.Version = 1
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func (s *InMemoryRequestStore) FindByID(_ context.Context, requestID id.RequestID) (*verification.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyRequest(req), nil
}

func (s *InMemoryRequestStore) FindActiveBySitter(_ context.Context, sitterID id.UserID) (*verification.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var active *verification.Request
	for _, req := range s.requests {
		if req.SitterID != sitterID {
			continue
		}
		if active == nil || req.Sequence > active.Sequence {
			active = req
		}
	}
	if active == nil {
		return nil, sentinel.ErrNotFound
	}
	return copyRequest(active), nil
}

func (s *InMemoryRequestStore) ListBySitter(_ context.Context, sitterID id.UserID) ([]*verification.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var requests []*verification.Request
	for _, req := range s.requests {
		if req.SitterID == sitterID {
			requests = append(requests, copyRequest(req))
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].Sequence < requests[j].Sequence
	})
	return requests, nil
}

func (s *InMemoryRequestStore) Execute(_ context.Context, requestID id.RequestID, validate func(*verification.Request) error, mutate func(*verification.Request)) (*verification.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := copyRequest(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.Version++
	s.requests[requestID] = copyRequest(working)
	return working, nil
}

func (s *InMemoryRequestStore) CountPending(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, req := range s.requests {
		if req.Status == verification.StatusPending {
			count++
		}
	}
	return count, nil
}

// InMemoryProfileStore keeps the projection per sitter.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.UserID]*verification.Profile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[id.UserID]*verification.Profile)}
}

func copyProfile(p *verification.Profile) *verification.Profile {
	clone := *p
	clone.Documents.Secondary = append([]string(nil), p.Documents.Secondary...)
	if p.HourlyRate != nil {
		rate := *p.HourlyRate
		clone.HourlyRate = &rate
	}
	return &clone
}

func (s *InMemoryProfileStore) Upsert(_ context.Context, profile *verification.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.profiles[profile.SitterID]; ok {
		profile.Version = existing.Version + 1
	} else {
		profile.Version = 1
	}
	s.profiles[profile.SitterID] = copyProfile(profile)
	return nil
}

func (s *InMemoryProfileStore) FindBySitter(_ context.Context, sitterID id.UserID) (*verification.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[sitterID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyProfile(profile), nil
}

func (s *InMemoryProfileStore) Execute(_ context.Context, sitterID id.UserID, validate func(*verification.Profile) error, mutate func(*verification.Profile)) (*verification.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.profiles[sitterID]
	if !ok {
		stored = &verification.Profile{
			SitterID:  sitterID,
			Status:    verification.StatusNone,
			UpdatedAt: time.Now(),
		}
	}
	working := copyProfile(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	working.Version++
	s.profiles[sitterID] = copyProfile(working)
	return working, nil
}
