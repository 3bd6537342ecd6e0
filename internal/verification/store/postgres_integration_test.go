//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"carelink/internal/verification"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/testutil/containers"
)

type PostgresVerificationSuite struct {
	suite.Suite
	pg       *containers.PostgresContainer
	requests *PostgresRequestStore
	profiles *PostgresProfileStore
	ctx      context.Context
}

func (s *PostgresVerificationSuite) SetupSuite() {
	s.pg = containers.NewPostgresContainer(s.T())
	s.requests = NewPostgresRequestStore(s.pg.DB)
	s.profiles = NewPostgresProfileStore(s.pg.DB)
	s.ctx = context.Background()
}

func (s *PostgresVerificationSuite) SetupTest() {
	s.Require().NoError(s.pg.Truncate(s.ctx))
}

func TestPostgresVerificationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresVerificationSuite))
}

func (s *PostgresVerificationSuite) newRequest(sitterID id.UserID) *verification.Request {
	req, err := verification.NewRequest(id.NewRequestID(), sitterID,
		verification.Documents{Primary: "s3://docs/id.jpg"}, time.Now())
	s.Require().NoError(err)
	return req
}

func (s *PostgresVerificationSuite) TestSinglePendingRule() {
	sitterID := id.NewUserID()

	first := s.newRequest(sitterID)
	s.Require().NoError(s.requests.CreateIfNonePending(s.ctx, first))
	s.Equal(uint64(1), first.Sequence)

	second := s.newRequest(sitterID)
	s.Require().ErrorIs(s.requests.CreateIfNonePending(s.ctx, second), sentinel.ErrAlreadyExists)

	// A decided request frees the pending slot; the sequence keeps growing.
	_, err := s.requests.Execute(s.ctx, first.ID,
		func(*verification.Request) error { return nil },
		func(r *verification.Request) {
			reviewer := id.NewUserID()
			s.Require().NoError(r.ApplyDecision(reviewer, verification.OutcomeRejected, "blurry ID photo", time.Now()))
		},
	)
	s.Require().NoError(err)

	third := s.newRequest(sitterID)
	s.Require().NoError(s.requests.CreateIfNonePending(s.ctx, third))
	s.Equal(uint64(2), third.Sequence)

	active, err := s.requests.FindActiveBySitter(s.ctx, sitterID)
	s.Require().NoError(err)
	s.Equal(third.ID, active.ID)
	s.Equal(verification.StatusPending, active.Status)
}

func (s *PostgresVerificationSuite) TestDecisionRoundTrip() {
	sitterID := id.NewUserID()
	reviewer := id.NewUserID()

	req := s.newRequest(sitterID)
	s.Require().NoError(s.requests.CreateIfNonePending(s.ctx, req))

	decided, err := s.requests.Execute(s.ctx, req.ID,
		func(*verification.Request) error { return nil },
		func(r *verification.Request) {
			s.Require().NoError(r.ApplyDecision(reviewer, verification.OutcomeApproved, "", time.Now()))
		},
	)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, decided.Status)

	found, err := s.requests.FindByID(s.ctx, req.ID)
	s.Require().NoError(err)
	s.Equal(verification.StatusApproved, found.Status)
	s.Require().NotNil(found.ReviewedBy)
	s.Equal(reviewer, *found.ReviewedBy)
	s.NotNil(found.ReviewedAt)
	s.Equal(int64(2), found.Version)
}

func (s *PostgresVerificationSuite) TestCountPending() {
	count, err := s.requests.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	s.Require().NoError(s.requests.CreateIfNonePending(s.ctx, s.newRequest(id.NewUserID())))
	s.Require().NoError(s.requests.CreateIfNonePending(s.ctx, s.newRequest(id.NewUserID())))

	count, err = s.requests.CountPending(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresVerificationSuite) TestProfileUpsertAndExecute() {
	sitterID := id.NewUserID()

	profile := &verification.Profile{
		SitterID:  sitterID,
		Status:    verification.StatusPending,
		Documents: verification.Documents{Primary: "s3://docs/id.jpg", Secondary: []string{"s3://docs/back.jpg"}},
		UpdatedAt: time.Now(),
	}
	s.Require().NoError(s.profiles.Upsert(s.ctx, profile))
	s.Equal(int64(1), profile.Version)

	bio := "experienced with toddlers"
	updated, err := s.profiles.Execute(s.ctx, sitterID,
		func(*verification.Profile) error { return nil },
		func(p *verification.Profile) { p.Bio = bio },
	)
	s.Require().NoError(err)
	s.Equal(bio, updated.Bio)
	s.Equal(verification.StatusPending, updated.Status)

	found, err := s.profiles.FindBySitter(s.ctx, sitterID)
	s.Require().NoError(err)
	s.Equal(bio, found.Bio)
	s.Equal([]string{"s3://docs/back.jpg"}, found.Documents.Secondary)
}

func (s *PostgresVerificationSuite) TestProfileExecuteSeedsMissingRow() {
	sitterID := id.NewUserID()

	availability := "weekday evenings"
	created, err := s.profiles.Execute(s.ctx, sitterID,
		func(*verification.Profile) error { return nil },
		func(p *verification.Profile) { p.Availability = availability },
	)
	s.Require().NoError(err)
	s.Equal(verification.StatusNone, created.Status)
	s.Equal(availability, created.Availability)
}
