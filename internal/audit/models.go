// Package audit records every decision applied to a verification request:
// who reviewed, when, the outcome, and the stated reason. The log is
// append-only; nothing in this package mutates or deletes entries.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	id "carelink/pkg/domain"
)

// Outcome mirrors the decision applied to a request. Kept as its own type so
// the audit trail stays readable even if the workflow's enums evolve.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// Entry is one immutable review record.
type Entry struct {
	ID         uuid.UUID
	RequestID  id.RequestID
	SitterID   id.UserID
	ReviewerID id.UserID
	Outcome    Outcome
	Reason     string
	Timestamp  time.Time
}

// Store persists entries. Implementations must never expose mutation.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// ListBySitter returns the sitter's entries in submission order
	// (oldest first), for caregiver-facing history and compliance review.
	ListBySitter(ctx context.Context, sitterID id.UserID) ([]Entry, error)
}
