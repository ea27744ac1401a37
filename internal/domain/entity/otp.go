package entity

import "time"

// OTPPurpose is the flow a one-time code was issued for.
type OTPPurpose string

const (
	// OTPPurposeRegister gates email verification after registration.
	OTPPurposeRegister OTPPurpose = "register"
	// OTPPurposeForgot gates a password reset.
	OTPPurposeForgot OTPPurpose = "forgot"
)

// String returns the string representation of the OTPPurpose.
func (p OTPPurpose) String() string {
	return string(p)
}

// IsValid checks if the OTPPurpose is a valid value.
func (p OTPPurpose) IsValid() bool {
	return p == OTPPurposeRegister || p == OTPPurposeForgot
}

// OTPChallenge is the single in-flight one-time code of an account.
// Only the hash of the code is ever stored.
type OTPChallenge struct {
	CodeHash  string
	Purpose   OTPPurpose
	ExpiresAt time.Time
}

// IsExpired reports whether the challenge window has passed.
func (c *OTPChallenge) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// OTPCounter tracks issuance attempts for one purpose.
type OTPCounter struct {
	Count        int
	LockoutUntil time.Time
}

// IsLocked reports whether issuance is refused: the ceiling has been
// reached and the lockout window has not elapsed.
func (c OTPCounter) IsLocked(ceiling int, now time.Time) bool {
	return c.Count >= ceiling && now.Before(c.LockoutUntil)
}
