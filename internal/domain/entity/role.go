// Package entity contains the core business objects of the project.
package entity

import (
	"slices"
	"strings"
)

// AccountKind identifies which side of the marketplace an account or
// session belongs to.
type AccountKind string

const (
	// KindCompany indicates a project-posting company account.
	KindCompany AccountKind = "company"
	// KindWorker indicates a bidding worker account.
	KindWorker AccountKind = "worker"
	// KindAdmin exists only as a session kind; admins do not self-register.
	KindAdmin AccountKind = "admin"
)

// RegistrableKinds lists the kinds that go through the self-service account lifecycle.
var RegistrableKinds = []AccountKind{KindCompany, KindWorker}

// String returns the string representation of the AccountKind.
func (k AccountKind) String() string {
	return string(k)
}

// IsValid checks if the AccountKind is a known session kind.
func (k AccountKind) IsValid() bool {
	switch k {
	case KindCompany, KindWorker, KindAdmin:
		return true
	default:
		return false
	}
}

// IsRegistrable reports whether accounts of this kind can self-register.
func (k AccountKind) IsRegistrable() bool {
	return slices.Contains(RegistrableKinds, k)
}

// DisplayNameField is the request attribute carrying the display name for the kind.
func (k AccountKind) DisplayNameField() string {
	if k == KindCompany {
		return "companyName"
	}

	return "fullName"
}

// ParseAccountKind converts a case-insensitive string into an AccountKind.
func ParseAccountKind(s string) (AccountKind, bool) {
	kind := AccountKind(strings.ToLower(strings.TrimSpace(s)))

	return kind, kind.IsValid()
}
