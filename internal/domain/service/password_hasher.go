// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for secret hashing and verification.
// It hashes passwords and one-time codes alike, keeping the domain pure.
type PasswordHasher interface {
	// Hash generates a salted hash from a plaintext secret.
	Hash(password string) (string, error)

	// Check compares a plaintext secret with a hash to see if they match.
	Check(password, hash string) bool
}

// PasswordPolicy validates password strength before hashing.
type PasswordPolicy interface {
	Validate(password string) error
}
