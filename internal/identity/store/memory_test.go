package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carelink/internal/identity"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

type UserStoreSuite struct {
	suite.Suite
	store *InMemoryUserStore
	ctx   context.Context
}

func (s *UserStoreSuite) SetupTest() {
	s.store = NewInMemoryUserStore()
	s.ctx = context.Background()
}

func TestUserStoreSuite(t *testing.T) {
	suite.Run(t, new(UserStoreSuite))
}

func (s *UserStoreSuite) newUser(role id.Role) *identity.User {
	user, err := identity.NewUser(id.NewUserID(), role, "someone@example.com", "Someone", time.Now())
	s.Require().NoError(err)
	return user
}

func (s *UserStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds user by ID", func() {
		user := s.newUser(id.RoleParent)
		s.Require().NoError(s.store.Create(s.ctx, user))
		s.Equal(int64(1), user.Version)

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user.Email, found.Email)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewUserID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("rejects duplicate ID", func() {
		user := s.newUser(id.RoleSitter)
		s.Require().NoError(s.store.Create(s.ctx, user))
		err := s.store.Create(s.ctx, user)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyExists)
	})
}

func (s *UserStoreSuite) TestOptimisticUpdates() {
	s.Run("commits update when version matches", func() {
		user := s.newUser(id.RoleSitter)
		s.Require().NoError(s.store.Create(s.ctx, user))

		user.DisplayName = "Renamed"
		s.Require().NoError(s.store.Update(s.ctx, user))
		s.Equal(int64(2), user.Version)

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal("Renamed", found.DisplayName)
	})

	s.Run("rejects stale version", func() {
		user := s.newUser(id.RoleSitter)
		s.Require().NoError(s.store.Create(s.ctx, user))

		stale, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)

		user.DisplayName = "First writer"
		s.Require().NoError(s.store.Update(s.ctx, user))

		stale.DisplayName = "Second writer"
		err = s.store.Update(s.ctx, stale)
		s.Require().ErrorIs(err, sentinel.ErrVersionConflict)
	})

	s.Run("returns ErrNotFound for non-existent user", func() {
		err := s.store.Update(s.ctx, s.newUser(id.RoleParent))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *UserStoreSuite) TestExecute() {
	s.Run("applies validate and mutate atomically", func() {
		user := s.newUser(id.RoleParent)
		s.Require().NoError(s.store.Create(s.ctx, user))

		updated, err := s.store.Execute(s.ctx, user.ID,
			func(u *identity.User) error { return nil },
			func(u *identity.User) { u.DisplayName = "Via Execute" },
		)
		s.Require().NoError(err)
		s.Equal("Via Execute", updated.DisplayName)
		s.Equal(int64(2), updated.Version)
	})

	s.Run("validate failure leaves record untouched", func() {
		user := s.newUser(id.RoleParent)
		s.Require().NoError(s.store.Create(s.ctx, user))

		_, err := s.store.Execute(s.ctx, user.ID,
			func(u *identity.User) error { return sentinel.ErrVersionConflict },
			func(u *identity.User) { u.DisplayName = "should not happen" },
		)
		s.Require().ErrorIs(err, sentinel.ErrVersionConflict)

		found, err := s.store.FindByID(s.ctx, user.ID)
		s.Require().NoError(err)
		s.Equal(user.DisplayName, found.DisplayName)
		s.Equal(int64(1), found.Version)
	})
}

func (s *UserStoreSuite) TestListAndCounts() {
	parent := s.newUser(id.RoleParent)
	sitter := s.newUser(id.RoleSitter)
	sitter2 := s.newUser(id.RoleSitter)
	for _, u := range []*identity.User{parent, sitter, sitter2} {
		s.Require().NoError(s.store.Create(s.ctx, u))
	}

	role := id.RoleSitter
	sitters, err := s.store.List(s.ctx, UserFilter{Role: &role})
	s.Require().NoError(err)
	s.Len(sitters, 2)

	limited, err := s.store.List(s.ctx, UserFilter{Limit: 1})
	s.Require().NoError(err)
	s.Len(limited, 1)

	counts, err := s.store.CountByRole(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, counts[id.RoleParent])
	s.Equal(2, counts[id.RoleSitter])
}

type ChildStoreSuite struct {
	suite.Suite
	store *InMemoryChildStore
	ctx   context.Context
}

func (s *ChildStoreSuite) SetupTest() {
	s.store = NewInMemoryChildStore()
	s.ctx = context.Background()
}

func TestChildStoreSuite(t *testing.T) {
	suite.Run(t, new(ChildStoreSuite))
}

func (s *ChildStoreSuite) newChild(parentID id.UserID) *identity.Child {
	child, err := identity.NewChild(id.NewChildID(), parentID, "Kid", nil, time.Now())
	s.Require().NoError(err)
	return child
}

func (s *ChildStoreSuite) TestLifecycle() {
	parentID := id.NewUserID()
	child := s.newChild(parentID)
	s.Require().NoError(s.store.Create(s.ctx, child))

	found, err := s.store.FindByID(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Equal(child.Name, found.Name)

	children, err := s.store.ListByParent(s.ctx, parentID)
	s.Require().NoError(err)
	s.Len(children, 1)

	s.Require().NoError(s.store.Delete(s.ctx, child.ID))
	_, err = s.store.FindByID(s.ctx, child.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ChildStoreSuite) TestInstructions() {
	parentID := id.NewUserID()
	child := s.newChild(parentID)
	s.Require().NoError(s.store.Create(s.ctx, child))

	_, err := s.store.FindInstructions(s.ctx, child.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)

	first := &identity.Instructions{
		ChildID:           child.ID,
		ParentID:          parentID,
		Allergies:         "peanuts",
		EmergencyContacts: map[string]string{"grandma": "+351 900 000 000"},
		UpdatedAt:         time.Now(),
	}
	s.Require().NoError(s.store.UpsertInstructions(s.ctx, first))
	s.Equal(first.UpdatedAt, first.CreatedAt)

	// A mutated caller map must not leak into the store.
	first.EmergencyContacts["grandma"] = "tampered"
	found, err := s.store.FindInstructions(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Equal("+351 900 000 000", found.EmergencyContacts["grandma"])

	// Replacement keeps CreatedAt and drops fields not in the new sheet.
	second := &identity.Instructions{
		ChildID:   child.ID,
		ParentID:  parentID,
		Allergies: "none",
		UpdatedAt: time.Now().Add(time.Minute),
	}
	s.Require().NoError(s.store.UpsertInstructions(s.ctx, second))
	s.Equal(first.CreatedAt, second.CreatedAt)

	found, err = s.store.FindInstructions(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Equal("none", found.Allergies)
	s.Empty(found.EmergencyContacts)

	// Deleting the child takes the sheet with it.
	s.Require().NoError(s.store.Delete(s.ctx, child.ID))
	_, err = s.store.FindInstructions(s.ctx, child.ID)
	s.Require().ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ChildStoreSuite) TestVersionConflictOnConcurrentAssignment() {
	child := s.newChild(id.NewUserID())
	s.Require().NoError(s.store.Create(s.ctx, child))

	readerA, err := s.store.FindByID(s.ctx, child.ID)
	s.Require().NoError(err)
	readerB, err := s.store.FindByID(s.ctx, child.ID)
	s.Require().NoError(err)

	readerA.AssignSitter(id.NewUserID(), "b1", time.Now())
	s.Require().NoError(s.store.Update(s.ctx, readerA))

	readerB.AssignSitter(id.NewUserID(), "b2", time.Now())
	err = s.store.Update(s.ctx, readerB)
	s.Require().ErrorIs(err, sentinel.ErrVersionConflict)

	found, err := s.store.FindByID(s.ctx, child.ID)
	s.Require().NoError(err)
	s.Equal(id.ReadableNumber("b1"), found.SitterNumber)
}
