package service

import (
	"context"
	"errors"

	"carelink/internal/identity"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// The linkage maintainer: child records carry denormalized copies of their
// caregivers' readable numbers (parentNumber, sitterNumber) for cheap display.
// The copies are derived data; ParentID and SitterID stay authoritative and
// authorization always checks those, never the numbers.

// ChildParams carries the parent-supplied fields for a new child record.
type ChildParams struct {
	Name string
	Age  *int
}

// CreateChild creates a child owned by the calling parent. The parent's
// readable number is resolved from the live record and denormalized onto the
// child, and a child number is allocated from the child namespace.
func (s *Service) CreateChild(ctx context.Context, parentID id.UserID, params ChildParams) (*identity.Child, error) {
	parent, err := s.users.FindByID(ctx, parentID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	if parent.Role != id.RoleParent {
		return nil, dErrors.New(dErrors.CodeForbidden, "only parents can create children")
	}

	child, err := identity.NewChild(id.NewChildID(), parentID, params.Name, params.Age, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	number, err := s.alloc.Allocate(ctx, id.NamespaceChild)
	if err != nil {
		return nil, err
	}
	child.ChildNumber = number
	child.ParentNumber = parent.Number

	if err := s.children.Create(ctx, child); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create child")
	}

	s.logger.InfoContext(ctx, "child created",
		"child_id", child.ID.String(),
		"parent_id", parentID.String(),
		"child_number", child.ChildNumber.String(),
	)
	if s.metrics != nil {
		s.metrics.NumbersAllocated.WithLabelValues(id.NamespaceChild.String()).Inc()
	}
	return child, nil
}

// GetChild fetches a child, enforcing the access rule against the live
// parent relation.
func (s *Service) GetChild(ctx context.Context, childID id.ChildID) (*identity.Child, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, wrapChildErr(err)
	}
	if err := authorizeChildAccess(ctx, child); err != nil {
		return nil, err
	}
	return child, nil
}

// ListChildren returns the calling parent's children.
func (s *Service) ListChildren(ctx context.Context, parentID id.UserID) ([]*identity.Child, error) {
	children, err := s.children.ListByParent(ctx, parentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list children")
	}
	return children, nil
}

// UpdateChild applies a partial update of parent-owned fields.
func (s *Service) UpdateChild(ctx context.Context, childID id.ChildID, update identity.ChildUpdate) (*identity.Child, error) {
	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < s.linkageMaxAttempts; attempt++ {
		child, err := s.children.FindByID(ctx, childID)
		if err != nil {
			return nil, wrapChildErr(err)
		}
		if err := authorizeChildAccess(ctx, child); err != nil {
			return nil, err
		}
		if err := child.ApplyUpdate(update, now); err != nil {
			return nil, err
		}
		err = s.children.Update(ctx, child)
		if err == nil {
			return child, nil
		}
		if !errors.Is(err, sentinel.ErrVersionConflict) {
			return nil, wrapChildErr(err)
		}
	}
	return nil, dErrors.New(dErrors.CodeVersionConflict, "child was modified concurrently")
}

// DeleteChild removes a child record.
func (s *Service) DeleteChild(ctx context.Context, childID id.ChildID) error {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return wrapChildErr(err)
	}
	if err := authorizeChildAccess(ctx, child); err != nil {
		return err
	}
	if err := s.children.Delete(ctx, childID); err != nil {
		return wrapChildErr(err)
	}
	return nil
}

// AssignCaregiver sets or clears the child's caregiver and reconciles the
// denormalized sitterNumber. The update is optimistic: on a version conflict
// the child is re-read and the intended assignment reapplied, up to the
// configured attempt bound, after which the caller gets CodeLinkageStale.
// Last committed assignment wins.
func (s *Service) AssignCaregiver(ctx context.Context, childID id.ChildID, caregiverID *id.UserID) (*identity.Child, error) {
	var sitterNumber id.ReadableNumber
	if caregiverID != nil {
		sitter, err := s.users.FindByID(ctx, *caregiverID)
		if err != nil {
			return nil, wrapUserErr(err)
		}
		if sitter.Role != id.RoleSitter {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "assigned caregiver must have the sitter role")
		}
		sitterNumber = sitter.Number
	}

	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < s.linkageMaxAttempts; attempt++ {
		child, err := s.children.FindByID(ctx, childID)
		if err != nil {
			return nil, wrapChildErr(err)
		}
		if err := authorizeChildAccess(ctx, child); err != nil {
			return nil, err
		}

		if caregiverID != nil {
			child.AssignSitter(*caregiverID, sitterNumber, now)
		} else {
			child.ClearSitter(now)
		}

		err = s.children.Update(ctx, child)
		if err == nil {
			s.logger.InfoContext(ctx, "caregiver assignment reconciled",
				"child_id", childID.String(),
				"sitter_number", child.SitterNumber.String(),
				"attempts", attempt+1,
			)
			return child, nil
		}
		if !errors.Is(err, sentinel.ErrVersionConflict) {
			return nil, wrapChildErr(err)
		}
		if s.metrics != nil {
			s.metrics.LinkageRetries.Inc()
		}
	}
	return nil, dErrors.New(dErrors.CodeLinkageStale, "caregiver assignment kept conflicting; please retry")
}

// InstructionsParams carries the replacement care sheet fields.
type InstructionsParams struct {
	FeedingSchedule     string
	NapSchedule         string
	Medication          string
	Allergies           string
	EmergencyContacts   map[string]string
	SpecialInstructions string
}

// GetInstructions returns the child's care sheet. A child without a stored
// sheet reads back as an empty one, never NotFound; the child itself must
// exist and be accessible.
func (s *Service) GetInstructions(ctx context.Context, childID id.ChildID) (*identity.Instructions, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, wrapChildErr(err)
	}
	if err := authorizeChildAccess(ctx, child); err != nil {
		return nil, err
	}
	instr, err := s.children.FindInstructions(ctx, childID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &identity.Instructions{ChildID: childID, ParentID: child.ParentID}, nil
	}
	if err != nil {
		return nil, wrapChildErr(err)
	}
	return instr, nil
}

// UpdateInstructions replaces the child's care sheet wholesale. Omitted
// fields clear; the care form always submits the full sheet.
func (s *Service) UpdateInstructions(ctx context.Context, childID id.ChildID, params InstructionsParams) (*identity.Instructions, error) {
	child, err := s.children.FindByID(ctx, childID)
	if err != nil {
		return nil, wrapChildErr(err)
	}
	if err := authorizeChildAccess(ctx, child); err != nil {
		return nil, err
	}

	instr := &identity.Instructions{
		ChildID:             childID,
		ParentID:            child.ParentID,
		FeedingSchedule:     params.FeedingSchedule,
		NapSchedule:         params.NapSchedule,
		Medication:          params.Medication,
		Allergies:           params.Allergies,
		EmergencyContacts:   params.EmergencyContacts,
		SpecialInstructions: params.SpecialInstructions,
		UpdatedAt:           requestcontext.Now(ctx),
	}
	if err := s.children.UpsertInstructions(ctx, instr); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update instructions")
	}
	return instr, nil
}

// authorizeChildAccess checks the live relation: the owning parent and admins
// may act on a child. The denormalized numbers are never consulted here.
func authorizeChildAccess(ctx context.Context, child *identity.Child) error {
	role := requestcontext.Role(ctx)
	if role == id.RoleAdmin {
		return nil
	}
	if child.ParentID == requestcontext.UserID(ctx) {
		return nil
	}
	return dErrors.New(dErrors.CodeForbidden, "you don't have access to this child")
}

func wrapChildErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "child not found")
	case errors.Is(err, sentinel.ErrVersionConflict):
		return dErrors.Wrap(err, dErrors.CodeVersionConflict, "child was modified concurrently")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "child store unavailable")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "child store failure")
	}
}
