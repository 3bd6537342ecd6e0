package domain

import dErrors "carelink/pkg/domain-errors"

// Role is the closed set of account roles. Construct via ParseRole at trust
// boundaries; direct casting bypasses validation.
type Role string

const (
	RoleParent Role = "parent"
	RoleSitter Role = "sitter"
	RoleAdmin  Role = "admin"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleParent: true,
	RoleSitter: true,
	RoleAdmin:  true,
}

// ParseRole constructs a Role from external input. The legacy client alias
// "babysitter" is accepted and normalized to RoleSitter.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	if s == "babysitter" {
		return RoleSitter, nil
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// Namespace returns the numbering namespace readable numbers for this role are
// allocated from.
func (r Role) Namespace() Namespace {
	switch r {
	case RoleParent:
		return NamespaceParent
	case RoleSitter:
		return NamespaceSitter
	case RoleAdmin:
		return NamespaceAdmin
	}
	return ""
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}
