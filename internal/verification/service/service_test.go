package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/suite"

	"carelink/internal/audit"
	"carelink/internal/verification"
	"carelink/internal/verification/store"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

type WorkflowSuite struct {
	suite.Suite
	svc        *Service
	requests   *store.InMemoryRequestStore
	auditStore *audit.InMemoryStore
	ctx        context.Context
	sitterID   id.UserID
	adminID    id.UserID
}

func (s *WorkflowSuite) SetupTest() {
	s.requests = store.NewInMemoryRequestStore()
	s.auditStore = audit.NewInMemoryStore()
	s.svc = New(
		s.requests,
		store.NewInMemoryProfileStore(),
		audit.NewPublisher(s.auditStore, slog.Default()),
	)
	s.ctx = context.Background()
	s.sitterID = id.NewUserID()
	s.adminID = id.NewUserID()
}

func TestWorkflowSuite(t *testing.T) {
	suite.Run(t, new(WorkflowSuite))
}

func (s *WorkflowSuite) docs() verification.Documents {
	return verification.Documents{Primary: "s3://docs/id-front.jpg", Secondary: []string{"s3://docs/id-back.jpg"}}
}

// freshSitter isolates subtests from each other's pending requests.
func (s *WorkflowSuite) freshSitter() {
	s.sitterID = id.NewUserID()
}

func (s *WorkflowSuite) submit() *verification.Request {
	req, err := s.svc.Submit(s.ctx, s.sitterID, s.docs())
	s.Require().NoError(err)
	return req
}

func (s *WorkflowSuite) TestSubmit() {
	s.Run("creates a pending request with a sequence", func() {
		s.freshSitter()
		req := s.submit()
		s.Equal(verification.StatusPending, req.Status)
		s.Equal(uint64(1), req.Sequence)
		s.False(req.SubmittedAt.IsZero())

		status, err := s.svc.CurrentStatus(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Equal(verification.StatusPending, status)
	})

	s.Run("requires the primary document", func() {
		s.freshSitter()
		_, err := s.svc.Submit(s.ctx, s.sitterID, verification.Documents{Secondary: []string{"s3://docs/extra.jpg"}})
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMissingPrimaryDocument))
	})

	s.Run("rejects a second submission while one is pending", func() {
		s.freshSitter()
		s.submit()
		_, err := s.svc.Submit(s.ctx, s.sitterID, s.docs())
		s.Require().True(dErrors.HasCode(err, dErrors.CodeAlreadyPending))
	})

	s.Run("refreshes the projection to pending", func() {
		s.freshSitter()
		s.submit()
		profile, err := s.svc.Profile(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Equal(verification.StatusPending, profile.Status)
		s.Equal("s3://docs/id-front.jpg", profile.Documents.Primary)
	})
}

func (s *WorkflowSuite) TestCurrentStatusWithoutHistory() {
	status, err := s.svc.CurrentStatus(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Equal(verification.StatusNone, status)
}

func (s *WorkflowSuite) TestDecide() {
	s.Run("rejection requires a reason and leaves the request pending", func() {
		s.freshSitter()
		req := s.submit()
		_, err := s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeRejected, "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeMissingReason))

		stored, err := s.requests.FindByID(s.ctx, req.ID)
		s.Require().NoError(err)
		s.Equal(verification.StatusPending, stored.Status)

		entries, err := s.auditStore.ListBySitter(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Empty(entries)
	})

	s.Run("approval records reviewer, audit entry and projection", func() {
		s.freshSitter()
		req := s.submit()
		decided, err := s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
		s.Require().NoError(err)
		s.Equal(verification.StatusApproved, decided.Status)
		s.Require().NotNil(decided.ReviewedBy)
		s.Equal(s.adminID, *decided.ReviewedBy)
		s.NotNil(decided.ReviewedAt)

		entries, err := s.auditStore.ListBySitter(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Require().Len(entries, 1)
		s.Equal(audit.OutcomeApproved, entries[0].Outcome)

		profile, err := s.svc.Profile(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Equal(verification.StatusApproved, profile.Status)
	})

	s.Run("replaying the same decision returns the stored record without a new audit entry", func() {
		s.freshSitter()
		req := s.submit()
		first, err := s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
		s.Require().NoError(err)

		replay, err := s.svc.Decide(s.ctx, req.ID, id.NewUserID(), verification.OutcomeApproved, "")
		s.Require().NoError(err)
		s.Equal(first.Status, replay.Status)
		s.Equal(first.ReviewedBy, replay.ReviewedBy)
		s.Equal(first.Version, replay.Version)

		entries, err := s.auditStore.ListBySitter(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Len(entries, 1)
	})

	s.Run("a conflicting decision on a decided request fails with NotPending", func() {
		s.freshSitter()
		req := s.submit()
		_, err := s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
		s.Require().NoError(err)

		_, err = s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeRejected, "changed my mind")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotPending))
	})

	s.Run("deciding an unknown request fails with NotFound", func() {
		s.freshSitter()
		_, err := s.svc.Decide(s.ctx, id.NewRequestID(), s.adminID, verification.OutcomeApproved, "")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// flakyAuditStore fails a set number of appends before delegating.
type flakyAuditStore struct {
	audit.Store
	failures int
}

func (f *flakyAuditStore) Append(ctx context.Context, entry audit.Entry) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("audit store down")
	}
	return f.Store.Append(ctx, entry)
}

func (s *WorkflowSuite) TestDecideBackfillsAuditEntryOnRetry() {
	flaky := &flakyAuditStore{Store: s.auditStore, failures: 1}
	svc := New(s.requests, store.NewInMemoryProfileStore(), audit.NewPublisher(flaky, slog.Default()))

	req, err := svc.Submit(s.ctx, s.sitterID, s.docs())
	s.Require().NoError(err)

	// The decision commits before the failed append, so the caller sees an
	// error while the request is already terminal.
	_, err = svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
	s.Require().Error(err)
	stored, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, stored.Status)

	entries, err := svc.AuditTrail(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Empty(entries)

	// The retry replays the decision and must backfill the missing entry
	// with the original reviewer, plus the skipped projection refresh.
	replay, err := svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, replay.Status)

	entries, err = svc.AuditTrail(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.OutcomeApproved, entries[0].Outcome)
	s.Equal(s.adminID, entries[0].ReviewerID)
	s.Equal(req.ID, entries[0].RequestID)

	profile, err := svc.Profile(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, profile.Status)

	// A further replay appends nothing new.
	_, err = svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
	s.Require().NoError(err)
	entries, err = svc.AuditTrail(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Len(entries, 1)
}

func (s *WorkflowSuite) TestRejectionAndResubmission() {
	req := s.submit()
	s.Require().Error(s.svc.RequireApproved(s.ctx, s.sitterID))

	rejected, err := s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeRejected, "blurry ID photo")
	s.Require().NoError(err)
	s.Equal(verification.StatusRejected, rejected.Status)
	s.Equal("blurry ID photo", rejected.RejectionReason)

	profile, err := s.svc.Profile(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Equal(verification.StatusRejected, profile.Status)
	s.Equal("blurry ID photo", profile.RejectionReason)

	entries, err := s.svc.AuditTrail(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)

	// Resubmission opens a fresh request; the old one stays terminal.
	resubmitted := s.submit()
	s.NotEqual(req.ID, resubmitted.ID)
	s.Equal(uint64(2), resubmitted.Sequence)

	status, err := s.svc.CurrentStatus(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Equal(verification.StatusPending, status)
	s.Require().Error(s.svc.RequireApproved(s.ctx, s.sitterID))

	entries, err = s.svc.AuditTrail(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("blurry ID photo", entries[0].Reason)

	_, err = s.svc.Decide(s.ctx, resubmitted.ID, s.adminID, verification.OutcomeApproved, "")
	s.Require().NoError(err)
	s.Require().NoError(s.svc.RequireApproved(s.ctx, s.sitterID))

	history, err := s.svc.History(s.ctx, s.sitterID)
	s.Require().NoError(err)
	s.Require().Len(history, 2)
	s.Equal(verification.StatusRejected, history[0].Status)
	s.Equal(verification.StatusApproved, history[1].Status)
}

func (s *WorkflowSuite) TestOwnedProfileFields() {
	s.Run("owned fields survive a projection refresh", func() {
		s.freshSitter()
		bio := "experienced with toddlers"
		rate := 18.5
		_, err := s.svc.UpdateOwnedProfile(s.ctx, s.sitterID, verification.ProfileUpdate{Bio: &bio, HourlyRate: &rate})
		s.Require().NoError(err)

		s.submit()

		profile, err := s.svc.Profile(s.ctx, s.sitterID)
		s.Require().NoError(err)
		s.Equal(verification.StatusPending, profile.Status)
		s.Equal("experienced with toddlers", profile.Bio)
		s.Require().NotNil(profile.HourlyRate)
		s.Equal(18.5, *profile.HourlyRate)
	})

	s.Run("owned update never touches the derived status", func() {
		s.freshSitter()
		req := s.submit()
		_, err := s.svc.Decide(s.ctx, req.ID, s.adminID, verification.OutcomeApproved, "")
		s.Require().NoError(err)

		availability := "weekday evenings"
		profile, err := s.svc.UpdateOwnedProfile(s.ctx, s.sitterID, verification.ProfileUpdate{Availability: &availability})
		s.Require().NoError(err)
		s.Equal(verification.StatusApproved, profile.Status)
		s.Equal("weekday evenings", profile.Availability)
	})
}

func (s *WorkflowSuite) TestCountPending() {
	count, err := s.svc.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	s.submit()
	otherSitter := id.NewUserID()
	_, err = s.svc.Submit(s.ctx, otherSitter, s.docs())
	s.Require().NoError(err)

	count, err = s.svc.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}
