package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyExists: uniqueness constraint would be violated
// - ErrVersionConflict: optimistic version token did not match the stored one
// - ErrAllocationConflict: counter increment lost a commit race
// - ErrUnavailable: backing store temporarily unreachable or timed out
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrVersionConflict    = errors.New("version conflict")
	ErrAllocationConflict = errors.New("allocation conflict")
	ErrUnavailable        = errors.New("unavailable")
)
