package store

import (
	"context"
	"sort"
	"sync"

	"carelink/internal/identity"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// In-memory stores keep development and tests lightweight. They copy records
// on the way in and out so callers cannot mutate shared state, and they apply
// the same optimistic-version contract as the Postgres stores.

type InMemoryUserStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*identity.User
}

func NewInMemoryUserStore() *InMemoryUserStore {
	return &InMemoryUserStore{users: make(map[id.UserID]*identity.User)}
}

func copyUser(u *identity.User) *identity.User {
	cp := *u
	if u.HourlyRate != nil {
		rate := *u.HourlyRate
		cp.HourlyRate = &rate
	}
	return &cp
}

func (s *InMemoryUserStore) Create(_ context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	user.Version = 1
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if user, ok := s.users[userID]; ok {
		return copyUser(user), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryUserStore) List(_ context.Context, filter UserFilter) ([]*identity.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*identity.User, 0, len(s.users))
	for _, u := range s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		users = append(users, copyUser(u))
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.After(users[j].CreatedAt)
	})
	if filter.Limit > 0 && len(users) > filter.Limit {
		users = users[:filter.Limit]
	}
	return users, nil
}

func (s *InMemoryUserStore) Update(_ context.Context, user *identity.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[user.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != user.Version {
		return sentinel.ErrVersionConflict
	}
	user.Version++
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *InMemoryUserStore) Execute(_ context.Context, userID id.UserID, validate func(*identity.User) error, mutate func(*identity.User)) (*identity.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(stored); err != nil {
		return nil, err
	}
	mutate(stored)
	stored.Version++
	return copyUser(stored), nil
}

func (s *InMemoryUserStore) CountByRole(_ context.Context) (map[id.Role]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[id.Role]int)
	for _, u := range s.users {
		counts[u.Role]++
	}
	return counts, nil
}

type InMemoryChildStore struct {
	mu           sync.RWMutex
	children     map[id.ChildID]*identity.Child
	instructions map[id.ChildID]*identity.Instructions
}

func NewInMemoryChildStore() *InMemoryChildStore {
	return &InMemoryChildStore{
		children:     make(map[id.ChildID]*identity.Child),
		instructions: make(map[id.ChildID]*identity.Instructions),
	}
}

func copyChild(c *identity.Child) *identity.Child {
	cp := *c
	if c.SitterID != nil {
		sid := *c.SitterID
		cp.SitterID = &sid
	}
	if c.Age != nil {
		age := *c.Age
		cp.Age = &age
	}
	return &cp
}

func (s *InMemoryChildStore) Create(_ context.Context, child *identity.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.children[child.ID]; ok {
		return sentinel.ErrAlreadyExists
	}
	child.Version = 1
	s.children[child.ID] = copyChild(child)
	return nil
}

func (s *InMemoryChildStore) FindByID(_ context.Context, childID id.ChildID) (*identity.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if child, ok := s.children[childID]; ok {
		return copyChild(child), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemoryChildStore) ListByParent(_ context.Context, parentID id.UserID) ([]*identity.Child, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var children []*identity.Child
	for _, c := range s.children {
		if c.ParentID == parentID {
			children = append(children, copyChild(c))
		}
	}
	sort.Slice(children, func(i, j int) bool {
		return children[i].CreatedAt.After(children[j].CreatedAt)
	})
	return children, nil
}

func (s *InMemoryChildStore) Update(_ context.Context, child *identity.Child) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.children[child.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Version != child.Version {
		return sentinel.ErrVersionConflict
	}
	child.Version++
	s.children[child.ID] = copyChild(child)
	return nil
}

func (s *InMemoryChildStore) Delete(_ context.Context, childID id.ChildID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.children[childID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.children, childID)
	delete(s.instructions, childID)
	return nil
}

func copyInstructions(i *identity.Instructions) *identity.Instructions {
	cp := *i
	if i.EmergencyContacts != nil {
		cp.EmergencyContacts = make(map[string]string, len(i.EmergencyContacts))
		for k, v := range i.EmergencyContacts {
			cp.EmergencyContacts[k] = v
		}
	}
	return &cp
}

func (s *InMemoryChildStore) UpsertInstructions(_ context.Context, instr *identity.Instructions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.instructions[instr.ChildID]; ok {
		instr.CreatedAt = existing.CreatedAt
	} else {
		instr.CreatedAt = instr.UpdatedAt
	}
	s.instructions[instr.ChildID] = copyInstructions(instr)
	return nil
}

func (s *InMemoryChildStore) FindInstructions(_ context.Context, childID id.ChildID) (*identity.Instructions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if instr, ok := s.instructions[childID]; ok {
		return copyInstructions(instr), nil
	}
	return nil, sentinel.ErrNotFound
}
