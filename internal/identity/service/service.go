// Package service orchestrates the identity core: user registration with
// readable-number assignment, profile updates, child records, and the linkage
// maintainer that keeps denormalized numbers consistent.
package service

import (
	"context"
	"errors"
	"log/slog"

	"carelink/internal/identity"
	"carelink/internal/identity/allocator"
	"carelink/internal/identity/store"
	"carelink/internal/platform/metrics"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// PendingCounter reports how many verification requests await review. The
// verification module provides it; the indirection keeps these packages from
// importing each other.
type PendingCounter interface {
	CountPending(ctx context.Context) (int, error)
}

// Service owns user and child lifecycles.
type Service struct {
	users    store.UserStore
	children store.ChildStore
	alloc    *allocator.Allocator
	pending  PendingCounter
	logger   *slog.Logger
	metrics  *metrics.Metrics

	linkageMaxAttempts int
}

type serviceConfig struct {
	pending            PendingCounter
	logger             *slog.Logger
	metrics            *metrics.Metrics
	linkageMaxAttempts int
}

// Option configures the Service.
type Option func(*serviceConfig)

func WithPendingCounter(p PendingCounter) Option {
	return func(c *serviceConfig) { c.pending = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func WithLinkageMaxAttempts(n int) Option {
	return func(c *serviceConfig) {
		if n > 0 {
			c.linkageMaxAttempts = n
		}
	}
}

func New(users store.UserStore, children store.ChildStore, alloc *allocator.Allocator, opts ...Option) *Service {
	cfg := &serviceConfig{linkageMaxAttempts: 3}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:              users,
		children:           children,
		alloc:              alloc,
		pending:            cfg.pending,
		logger:             logger,
		metrics:            cfg.metrics,
		linkageMaxAttempts: cfg.linkageMaxAttempts,
	}
}

// RegisterParams carries the identity-provider facts for a new account.
type RegisterParams struct {
	UserID      id.UserID
	Role        id.Role
	Email       string
	DisplayName string
}

// Register creates the canonical user record and assigns its readable number
// from the role's namespace. The number is allocated before the record is
// written so a stored user never exists without one; a crash in between burns
// a number, which is acceptable because numbers are never reused anyway.
//
// Errors: CodeConflict when the user already exists, CodeAllocationConflict /
// CodeUnavailable from the allocator, CodeInvalidInput on bad params.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*identity.User, error) {
	user, err := identity.NewUser(params.UserID, params.Role, params.Email, params.DisplayName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	number, err := s.alloc.Allocate(ctx, params.Role.Namespace())
	if err != nil {
		return nil, err
	}
	user.Number = number

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeConflict, "user already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}

	s.logger.InfoContext(ctx, "user registered",
		"user_id", user.ID.String(),
		"role", user.Role.String(),
		"number", user.Number.String(),
	)
	if s.metrics != nil {
		s.metrics.UsersCreated.WithLabelValues(user.Role.String()).Inc()
		s.metrics.NumbersAllocated.WithLabelValues(params.Role.Namespace().String()).Inc()
	}
	return user, nil
}

// GetUser fetches a user record.
func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*identity.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// UpdateProfile applies a partial update of caregiver-owned fields. The store
// holds the record lock across the mutation, so concurrent updates serialize
// instead of losing writes.
func (s *Service) UpdateProfile(ctx context.Context, userID id.UserID, update identity.ProfileUpdate) (*identity.User, error) {
	now := requestcontext.Now(ctx)
	user, err := s.users.Execute(ctx, userID,
		func(*identity.User) error { return nil },
		func(u *identity.User) { u.Apply(update, now) },
	)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// ListUsers returns users for the admin surface, optionally filtered by role.
// The legacy "babysitter" alias is accepted.
func (s *Service) ListUsers(ctx context.Context, roleFilter string, limit int) ([]*identity.User, error) {
	filter := store.UserFilter{Limit: limit}
	if roleFilter != "" {
		role, err := id.ParseRole(roleFilter)
		if err != nil {
			return nil, err
		}
		filter.Role = &role
	}
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// Stats builds the admin dashboard rollup.
func (s *Service) Stats(ctx context.Context) (identity.Stats, error) {
	counts, err := s.users.CountByRole(ctx)
	if err != nil {
		return identity.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count users")
	}
	stats := identity.Stats{
		TotalParents: counts[id.RoleParent],
		TotalSitters: counts[id.RoleSitter],
		TotalAdmins:  counts[id.RoleAdmin],
	}
	stats.TotalUsers = stats.TotalParents + stats.TotalSitters + stats.TotalAdmins

	if s.pending != nil {
		pending, err := s.pending.CountPending(ctx)
		if err != nil {
			return identity.Stats{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count pending verifications")
		}
		stats.PendingVerifications = pending
	}
	return stats, nil
}

func wrapUserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.Wrap(err, dErrors.CodeVersionConflict, "user was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "user store failure")
	}
}
