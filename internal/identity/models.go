package identity

import (
	"strings"
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// User is the canonical identity record.
//
// Invariants:
//   - ID comes from the identity provider and is immutable
//   - Role is immutable after creation
//   - Number is assigned exactly once by the allocator and never reused,
//     even if the user is later deactivated
//   - Version is the optimistic concurrency token owned by the store
type User struct {
	ID                id.UserID
	Number            id.ReadableNumber
	Role              id.Role
	Email             string
	DisplayName       string
	PhoneNumber       string
	PreferredLanguage string
	Theme             string
	Bio               string
	HourlyRate        *float64
	Address           string
	City              string
	Country           string
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Version           int64
}

// ProfileUpdate is a partial update of caregiver-owned profile fields. Nil
// means "leave unchanged"; pointers to the zero value clear the field.
// Number and Role are deliberately absent: they are never writable here.
type ProfileUpdate struct {
	DisplayName       *string
	PhoneNumber       *string
	PreferredLanguage *string
	Theme             *string
	Bio               *string
	HourlyRate        *float64
	Address           *string
	City              *string
	Country           *string
}

// Apply copies the provided fields onto the user and bumps UpdatedAt.
func (u *User) Apply(p ProfileUpdate, now time.Time) {
	if p.DisplayName != nil {
		u.DisplayName = *p.DisplayName
	}
	if p.PhoneNumber != nil {
		u.PhoneNumber = *p.PhoneNumber
	}
	if p.PreferredLanguage != nil {
		u.PreferredLanguage = *p.PreferredLanguage
	}
	if p.Theme != nil {
		u.Theme = *p.Theme
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.HourlyRate != nil {
		u.HourlyRate = p.HourlyRate
	}
	if p.Address != nil {
		u.Address = *p.Address
	}
	if p.City != nil {
		u.City = *p.City
	}
	if p.Country != nil {
		u.Country = *p.Country
	}
	u.UpdatedAt = now
}

// NewUser validates and constructs a user record. The readable number is
// attached afterwards by the registration flow, once allocation commits.
func NewUser(userID id.UserID, role id.Role, email, displayName string, now time.Time) (*User, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "email is required")
	}
	return &User{
		ID:                userID,
		Role:              role,
		Email:             email,
		DisplayName:       strings.TrimSpace(displayName),
		PreferredLanguage: "en",
		Theme:             "auto",
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Child is a dependent record owned by a parent.
//
// ParentNumber and SitterNumber are denormalized copies of the owning users'
// readable numbers. They exist for cheap display and are never consulted for
// authorization; ParentID and SitterID stay authoritative.
type Child struct {
	ID           id.ChildID
	ParentID     id.UserID
	SitterID     *id.UserID
	Name         string
	Age          *int
	ChildNumber  id.ReadableNumber
	ParentNumber id.ReadableNumber
	SitterNumber id.ReadableNumber
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int64
}

// NewChild validates and constructs a child record. Numbers are attached by
// the creation flow once resolved.
func NewChild(childID id.ChildID, parentID id.UserID, name string, age *int, now time.Time) (*Child, error) {
	if childID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child id is required")
	}
	if parentID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "parent id is required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child name is required")
	}
	if age != nil && (*age < 0 || *age > 17) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "child age must be between 0 and 17")
	}
	return &Child{
		ID:        childID,
		ParentID:  parentID,
		Name:      name,
		Age:       age,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// AssignSitter records the caregiver assignment together with the denormalized
// display number.
func (c *Child) AssignSitter(sitterID id.UserID, number id.ReadableNumber, now time.Time) {
	sid := sitterID
	c.SitterID = &sid
	c.SitterNumber = number
	c.UpdatedAt = now
}

// ClearSitter removes the caregiver assignment and its denormalized number.
func (c *Child) ClearSitter(now time.Time) {
	c.SitterID = nil
	c.SitterNumber = ""
	c.UpdatedAt = now
}

// ChildUpdate is a partial update of parent-owned child fields.
type ChildUpdate struct {
	Name *string
	Age  *int
}

// Apply copies the provided fields onto the child and bumps UpdatedAt.
func (c *Child) ApplyUpdate(p ChildUpdate, now time.Time) error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return dErrors.New(dErrors.CodeInvalidInput, "child name cannot be empty")
		}
		c.Name = name
	}
	if p.Age != nil {
		if *p.Age < 0 || *p.Age > 17 {
			return dErrors.New(dErrors.CodeInvalidInput, "child age must be between 0 and 17")
		}
		c.Age = p.Age
	}
	c.UpdatedAt = now
	return nil
}

// Instructions is the care sheet a parent keeps for a child: schedules,
// medication, allergies, and emergency contacts. A child without a stored
// sheet reads back as an empty one; updates replace the whole sheet, matching
// how the care form is edited.
type Instructions struct {
	ChildID             id.ChildID
	ParentID            id.UserID
	FeedingSchedule     string
	NapSchedule         string
	Medication          string
	Allergies           string
	EmergencyContacts   map[string]string
	SpecialInstructions string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Stats is the admin dashboard rollup.
type Stats struct {
	TotalUsers           int
	TotalParents         int
	TotalSitters         int
	TotalAdmins          int
	PendingVerifications int
}
