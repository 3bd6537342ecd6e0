// Package service orchestrates the verification workflow: submission, admin
// decision, the audit trail, and the babysitter profile projection that gates
// caregiver-facing features.
package service

import (
	"context"
	"errors"
	"log/slog"

	"carelink/internal/audit"
	"carelink/internal/platform/metrics"
	"carelink/internal/verification"
	"carelink/internal/verification/store"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// errReplay signals inside Decide that the request is already decided with
// the same outcome, so the stored terminal record should be returned as-is.
var errReplay = errors.New("decision replay")

// Service owns the verification request lifecycle.
type Service struct {
	requests store.RequestStore
	profiles store.ProfileStore
	audit    *audit.Publisher
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type serviceConfig struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures the Service.
type Option func(*serviceConfig)

func WithLogger(l *slog.Logger) Option {
	return func(c *serviceConfig) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *serviceConfig) { c.metrics = m }
}

func New(requests store.RequestStore, profiles store.ProfileStore, auditor *audit.Publisher, opts ...Option) *Service {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		requests: requests,
		profiles: profiles,
		audit:    auditor,
		logger:   logger,
		metrics:  cfg.metrics,
	}
}

// Submit opens a new verification request for the caregiver and refreshes
// the profile projection to pending.
//
// Errors: CodeMissingPrimaryDocument when the primary document is absent,
// CodeAlreadyPending when a request is already under review.
func (s *Service) Submit(ctx context.Context, sitterID id.UserID, docs verification.Documents) (*verification.Request, error) {
	req, err := verification.NewRequest(id.NewRequestID(), sitterID, docs, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.requests.CreateIfNonePending(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyExists) {
			return nil, dErrors.New(dErrors.CodeAlreadyPending, "you already have a submission under review")
		}
		return nil, wrapRequestErr(err)
	}

	if err := s.refreshProjection(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification submitted",
		"request_id", req.ID.String(),
		"sitter_id", sitterID.String(),
		"sequence", req.Sequence,
	)
	if s.metrics != nil {
		s.metrics.VerificationSubmitted.Inc()
	}
	return req, nil
}

// Decide applies an admin's decision to a pending request, records the audit
// entry, and refreshes the projection. Replaying the same decision on an
// already-decided request returns the stored terminal record without a new
// audit entry; a conflicting decision fails with CodeNotPending.
//
// The decision commits before the audit append, so a failed append leaves a
// decided request without its entry. The replay path backfills the entry and
// the projection from the stored record, so retrying the failed call heals it.
func (s *Service) Decide(ctx context.Context, requestID id.RequestID, reviewerID id.UserID, outcome verification.Outcome, reason string) (*verification.Request, error) {
	now := requestcontext.Now(ctx)
	req, err := s.requests.Execute(ctx, requestID,
		func(r *verification.Request) error {
			if r.Status.Terminal() && r.Status == outcome.Status() {
				return errReplay
			}
			return r.ApplyDecision(reviewerID, outcome, reason, now)
		},
		func(*verification.Request) {},
	)
	if errors.Is(err, errReplay) {
		stored, findErr := s.requests.FindByID(ctx, requestID)
		if findErr != nil {
			return nil, wrapRequestErr(findErr)
		}
		if healErr := s.ensureAudited(ctx, stored); healErr != nil {
			return nil, healErr
		}
		if refreshErr := s.refreshProjection(ctx, stored); refreshErr != nil {
			return nil, refreshErr
		}
		return stored, nil
	}
	if err != nil {
		return nil, wrapRequestErr(err)
	}

	if err := s.audit.Emit(ctx, audit.Entry{
		RequestID:  req.ID,
		SitterID:   req.SitterID,
		ReviewerID: reviewerID,
		Outcome:    audit.Outcome(outcome),
		Reason:     reason,
		Timestamp:  now,
	}); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record review")
	}

	if err := s.refreshProjection(ctx, req); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "verification decided",
		"request_id", req.ID.String(),
		"sitter_id", req.SitterID.String(),
		"outcome", string(outcome),
		"reviewer_id", reviewerID.String(),
	)
	if s.metrics != nil {
		s.metrics.VerificationDecided.WithLabelValues(string(outcome)).Inc()
	}
	return req, nil
}

// CurrentStatus reports the status of the caregiver's most recent request,
// or StatusNone when none was ever submitted. Callers gating features must
// call this at action time, never cache it across requests.
func (s *Service) CurrentStatus(ctx context.Context, sitterID id.UserID) (verification.Status, error) {
	req, err := s.requests.FindActiveBySitter(ctx, sitterID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return verification.StatusNone, nil
	}
	if err != nil {
		return "", wrapRequestErr(err)
	}
	return req.Status, nil
}

// RequireApproved is the gate for caregiver-facing features. Anything other
// than an approved current status is a forbidden action.
func (s *Service) RequireApproved(ctx context.Context, sitterID id.UserID) error {
	status, err := s.CurrentStatus(ctx, sitterID)
	if err != nil {
		return err
	}
	if status != verification.StatusApproved {
		return dErrors.New(dErrors.CodeForbidden, "caregiver is not verified")
	}
	return nil
}

// History returns the caregiver's requests oldest first.
func (s *Service) History(ctx context.Context, sitterID id.UserID) ([]*verification.Request, error) {
	requests, err := s.requests.ListBySitter(ctx, sitterID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	return requests, nil
}

// AuditTrail returns the review entries for the caregiver, oldest first.
func (s *Service) AuditTrail(ctx context.Context, sitterID id.UserID) ([]audit.Entry, error) {
	entries, err := s.audit.List(ctx, sitterID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}
	return entries, nil
}

// Profile returns the caregiver's projection. A caregiver who never touched
// the workflow gets an empty projection with StatusNone rather than an error.
func (s *Service) Profile(ctx context.Context, sitterID id.UserID) (*verification.Profile, error) {
	profile, err := s.profiles.FindBySitter(ctx, sitterID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &verification.Profile{SitterID: sitterID, Status: verification.StatusNone}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load profile")
	}
	return profile, nil
}

// UpdateOwnedProfile applies a partial update of the caregiver-owned fields.
// The derived verification fields are untouched.
func (s *Service) UpdateOwnedProfile(ctx context.Context, sitterID id.UserID, update verification.ProfileUpdate) (*verification.Profile, error) {
	now := requestcontext.Now(ctx)
	profile, err := s.profiles.Execute(ctx, sitterID,
		func(*verification.Profile) error { return nil },
		func(p *verification.Profile) { p.Apply(update, now) },
	)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update profile")
	}
	return profile, nil
}

// CountPending implements the identity service's PendingCounter.
func (s *Service) CountPending(ctx context.Context) (int, error) {
	count, err := s.requests.CountPending(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count pending requests")
	}
	return count, nil
}

// ensureAudited backfills the audit entry for a decided request whose append
// failed on the original call. The entry is rebuilt from the stored record so
// it carries the original reviewer and decision time, not the retry's.
func (s *Service) ensureAudited(ctx context.Context, req *verification.Request) error {
	entries, err := s.audit.List(ctx, req.SitterID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list reviews")
	}
	for _, e := range entries {
		if e.RequestID == req.ID {
			return nil
		}
	}

	entry := audit.Entry{
		RequestID: req.ID,
		SitterID:  req.SitterID,
		Outcome:   audit.OutcomeApproved,
		Reason:    req.RejectionReason,
	}
	if req.Status == verification.StatusRejected {
		entry.Outcome = audit.OutcomeRejected
	}
	if req.ReviewedBy != nil {
		entry.ReviewerID = *req.ReviewedBy
	}
	if req.ReviewedAt != nil {
		entry.Timestamp = *req.ReviewedAt
	}
	if err := s.audit.Emit(ctx, entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record review")
	}
	s.logger.InfoContext(ctx, "backfilled review entry",
		"request_id", req.ID.String(),
		"sitter_id", req.SitterID.String(),
	)
	return nil
}

func (s *Service) refreshProjection(ctx context.Context, req *verification.Request) error {
	now := requestcontext.Now(ctx)
	_, err := s.profiles.Execute(ctx, req.SitterID,
		func(*verification.Profile) error { return nil },
		func(p *verification.Profile) { p.Refresh(req, now) },
	)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to refresh profile projection")
	}
	return nil
}

func wrapRequestErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "verification request not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.Wrap(err, dErrors.CodeVersionConflict, "request was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "verification store unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "verification store failure")
	}
}
