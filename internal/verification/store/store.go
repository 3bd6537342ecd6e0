// Package store persists verification requests and the babysitter profile
// projection. Implementations translate their backend's failures into the
// shared sentinel errors.
package store

import (
	"context"

	"carelink/internal/verification"
	id "carelink/pkg/domain"
)

// RequestStore persists verification requests.
//
// CreateIfNonePending atomically enforces the single-pending rule: it assigns
// the request's per-sitter Sequence (strictly increasing, starting at 1) and
// rejects the write with sentinel.ErrAlreadyExists when the sitter already
// has a pending request. Execute holds the record lock across validate and
// mutate so concurrent decisions serialize; validate failing leaves the
// record untouched.
type RequestStore interface {
	CreateIfNonePending(ctx context.Context, req *verification.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*verification.Request, error)
	// FindActiveBySitter returns the sitter's most recent request by
	// Sequence, or sentinel.ErrNotFound if none was ever created.
	FindActiveBySitter(ctx context.Context, sitterID id.UserID) (*verification.Request, error)
	// ListBySitter returns the sitter's requests oldest first.
	ListBySitter(ctx context.Context, sitterID id.UserID) ([]*verification.Request, error)
	Execute(ctx context.Context, requestID id.RequestID, validate func(*verification.Request) error, mutate func(*verification.Request)) (*verification.Request, error)
	CountPending(ctx context.Context) (int, error)
}

// ProfileStore persists the babysitter profile projection.
type ProfileStore interface {
	// Upsert writes the whole projection, creating it on first touch.
	Upsert(ctx context.Context, profile *verification.Profile) error
	FindBySitter(ctx context.Context, sitterID id.UserID) (*verification.Profile, error)
	// Execute locks the profile across validate and mutate, creating an
	// empty projection first when none exists.
	Execute(ctx context.Context, sitterID id.UserID, validate func(*verification.Profile) error, mutate func(*verification.Profile)) (*verification.Profile, error)
}
