package domain

import (
	"strconv"

	dErrors "carelink/pkg/domain-errors"
)

// Namespace identifies an independent readable-number sequence. Users draw
// from the namespace of their role; children have a namespace of their own.
type Namespace string

const (
	NamespaceParent Namespace = "parent"
	NamespaceSitter Namespace = "sitter"
	NamespaceAdmin  Namespace = "admin"
	NamespaceChild  Namespace = "child"
)

// namespacePrefixes maps each namespace to the prefix shown to users.
var namespacePrefixes = map[Namespace]string{
	NamespaceParent: "p",
	NamespaceSitter: "b",
	NamespaceAdmin:  "a",
	NamespaceChild:  "c",
}

// IsValid checks if the namespace is one of the supported enum values.
func (n Namespace) IsValid() bool {
	_, ok := namespacePrefixes[n]
	return ok
}

// Prefix returns the single-letter prefix for the namespace.
func (n Namespace) Prefix() string {
	return namespacePrefixes[n]
}

func (n Namespace) String() string { return string(n) }

// ReadableNumber is the short role-prefixed sequential identifier shown to
// users in place of an opaque identity key (p1, b42, a3, c17). The empty
// string means no number has been assigned yet.
type ReadableNumber string

// FormatNumber renders sequence n of a namespace as a readable number.
// Sequences start at 1; zero means the counter was never incremented and is
// rejected so a broken allocator cannot mint an ambiguous "p0".
func FormatNumber(ns Namespace, n uint64) (ReadableNumber, error) {
	if !ns.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid numbering namespace")
	}
	if n == 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "readable numbers start at 1")
	}
	return ReadableNumber(ns.Prefix() + strconv.FormatUint(n, 10)), nil
}

// IsZero reports whether no number has been assigned.
func (r ReadableNumber) IsZero() bool { return r == "" }

func (r ReadableNumber) String() string { return string(r) }
