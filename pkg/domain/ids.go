package domain

import (
	"github.com/google/uuid"

	dErrors "carelink/pkg/domain-errors"
)

// Typed entity IDs. Distinct types make cross-entity assignment a compile-time
// error; construct via the Parse functions at trust boundaries so nil and
// malformed UUIDs are rejected before they reach a store.
type (
	UserID    uuid.UUID
	ChildID   uuid.UUID
	RequestID uuid.UUID
)

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id ChildID) String() string   { return uuid.UUID(id).String() }
func (id RequestID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ChildID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id RequestID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// NewUserID mints a fresh user ID. User IDs normally come from the identity
// provider via ParseUserID; this exists for seeding and tests.
func NewUserID() UserID { return UserID(uuid.New()) }

func NewChildID() ChildID { return ChildID(uuid.New()) }

func NewRequestID() RequestID { return RequestID(uuid.New()) }

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

// ParseUserID validates external input into a UserID.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseChildID validates external input into a ChildID.
func ParseChildID(s string) (ChildID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ChildID{}, err
	}
	return ChildID(u), nil
}

// ParseRequestID validates external input into a RequestID.
func ParseRequestID(s string) (RequestID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return RequestID{}, err
	}
	return RequestID(u), nil
}
