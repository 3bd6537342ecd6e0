// Package store persists canonical User and Child records.
//
// Stores are interface-driven to keep the domain logic testable and to allow
// swapping in-memory and Postgres persistence without rewiring business code.
// Updates are optimistic: the entity's Version must match the stored one or
// the store returns sentinel.ErrVersionConflict, so concurrent writers never
// silently overwrite each other.
package store

import (
	"context"

	"carelink/internal/identity"
	id "carelink/pkg/domain"
)

// UserFilter narrows List results.
type UserFilter struct {
	Role  *id.Role
	Limit int
}

type UserStore interface {
	// Create fails with sentinel.ErrAlreadyExists when the ID is taken.
	Create(ctx context.Context, user *identity.User) error
	FindByID(ctx context.Context, userID id.UserID) (*identity.User, error)
	// List returns users newest first, honoring the filter.
	List(ctx context.Context, filter UserFilter) ([]*identity.User, error)
	// Update commits the record if its Version still matches the stored one,
	// then increments it. Returns sentinel.ErrVersionConflict otherwise.
	Update(ctx context.Context, user *identity.User) error
	// Execute atomically runs validate then mutate while holding the record
	// lock, bumping the version on success.
	Execute(ctx context.Context, userID id.UserID, validate func(*identity.User) error, mutate func(*identity.User)) (*identity.User, error)
	CountByRole(ctx context.Context) (map[id.Role]int, error)
}

type ChildStore interface {
	Create(ctx context.Context, child *identity.Child) error
	FindByID(ctx context.Context, childID id.ChildID) (*identity.Child, error)
	// ListByParent returns the parent's children newest first.
	ListByParent(ctx context.Context, parentID id.UserID) ([]*identity.Child, error)
	// Update has the same optimistic-version contract as UserStore.Update.
	Update(ctx context.Context, child *identity.Child) error
	// Delete removes the child and its care sheet.
	Delete(ctx context.Context, childID id.ChildID) error

	// UpsertInstructions replaces the child's care sheet, creating it on the
	// first write. CreatedAt is preserved across replacements.
	UpsertInstructions(ctx context.Context, instr *identity.Instructions) error
	// FindInstructions returns sentinel.ErrNotFound when no sheet was ever
	// written for the child.
	FindInstructions(ctx context.Context, childID id.ChildID) (*identity.Instructions, error)
}
