// Package verification holds the document-verification workflow: a caregiver
// submits identity documents, an admin approves or rejects, and a read-side
// profile projection gates caregiver-facing features on the outcome.
package verification

import (
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Status is the lifecycle state of a caregiver's verification.
//
// A request is born pending and decided exactly once; StatusNone never
// appears on a stored request, it is the answer when no request exists.
type Status string

const (
	StatusNone     Status = "none"
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Outcome is an admin's decision on a pending request.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

func ParseOutcome(raw string) (Outcome, error) {
	switch Outcome(raw) {
	case OutcomeApproved:
		return OutcomeApproved, nil
	case OutcomeRejected:
		return OutcomeRejected, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "outcome must be approved or rejected")
	}
}

func (o Outcome) Status() Status {
	if o == OutcomeApproved {
		return StatusApproved
	}
	return StatusRejected
}

// Documents carries references to the uploaded files. The files themselves
// live in the document storage service; only handles are stored here.
type Documents struct {
	Primary   string
	Secondary []string
}

// Request is one verification attempt. Sequence is assigned by the store at
// creation, strictly increasing per sitter, and is authoritative for "most
// recent" so clock skew between submitters cannot reorder history.
type Request struct {
	ID              id.RequestID
	SitterID        id.UserID
	Sequence        uint64
	Status          Status
	Documents       Documents
	SubmittedAt     time.Time
	ReviewedAt      *time.Time
	ReviewedBy      *id.UserID
	RejectionReason string

	// Version is the optimistic concurrency token managed by the store.
	Version int64
}

// NewRequest builds a pending request. Sequence stays zero until the store
// assigns it.
func NewRequest(requestID id.RequestID, sitterID id.UserID, docs Documents, now time.Time) (*Request, error) {
	if docs.Primary == "" {
		return nil, dErrors.New(dErrors.CodeMissingPrimaryDocument, "a primary identity document is required")
	}
	return &Request{
		ID:          requestID,
		SitterID:    sitterID,
		Status:      StatusPending,
		Documents:   docs,
		SubmittedAt: now,
	}, nil
}

// ApplyDecision transitions a pending request to its terminal state.
// Decisions on non-pending requests are rejected here; the idempotent replay
// of an identical decision is handled one level up, in the service.
func (r *Request) ApplyDecision(reviewer id.UserID, outcome Outcome, reason string, now time.Time) error {
	if r.Status != StatusPending {
		return dErrors.New(dErrors.CodeNotPending, "request has already been decided")
	}
	if outcome == OutcomeRejected && reason == "" {
		return dErrors.New(dErrors.CodeMissingReason, "a rejection reason is required")
	}
	r.Status = outcome.Status()
	r.ReviewedAt = &now
	r.ReviewedBy = &reviewer
	if outcome == OutcomeRejected {
		r.RejectionReason = reason
	} else {
		r.RejectionReason = ""
	}
	return nil
}

// Profile is the caregiver-facing projection. Status, RejectionReason and
// Documents are derived from the most recent request and refreshed by the
// workflow; Bio, HourlyRate and Availability are caregiver-owned and updated
// independently of the state machine.
type Profile struct {
	SitterID        id.UserID
	Status          Status
	RejectionReason string
	Documents       Documents
	Bio             string
	HourlyRate      *float64
	Availability    string
	UpdatedAt       time.Time
	Version         int64
}

// ProfileUpdate is a partial update of the caregiver-owned fields. Nil means
// leave unchanged.
type ProfileUpdate struct {
	Bio          *string
	HourlyRate   *float64
	Availability *string
}

func (p *Profile) Apply(update ProfileUpdate, now time.Time) {
	if update.Bio != nil {
		p.Bio = *update.Bio
	}
	if update.HourlyRate != nil {
		p.HourlyRate = update.HourlyRate
	}
	if update.Availability != nil {
		p.Availability = *update.Availability
	}
	p.UpdatedAt = now
}

// Refresh overwrites the derived fields from the request's current state.
// The caregiver-owned fields are left alone.
func (p *Profile) Refresh(req *Request, now time.Time) {
	p.Status = req.Status
	p.RejectionReason = req.RejectionReason
	p.Documents = req.Documents
	p.UpdatedAt = now
}
