// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Account is a company or worker identity. OTP and device-trust state are
// embedded and never outlive the account.
type Account struct {
	ID                uuid.UUID   // The Global Unique Identifier (GUID) for the account.
	Kind              AccountKind // Which side of the marketplace the account belongs to.
	Email             string      // Normalized (lowercase) login email, unique per kind.
	Handle            string      // Public username, unique per kind, carries the family suffix.
	DisplayName       string      // Company name or worker full name.
	PasswordHash      string      // bcrypt hash of the current password.
	PasswordExpiresAt time.Time   // After this instant the password must be reset.

	IsVerified bool       // Set once the registration OTP has been confirmed.
	VerifiedAt *time.Time // When the account was verified.

	OTP               *OTPChallenge // The in-flight one-time code, nil when none.
	RegisterOTP       OTPCounter    // Issuance counter for the register purpose.
	ForgotOTP         OTPCounter    // Issuance counter for the forgot purpose.
	FailedOTPAttempts int           // Wrong codes submitted during verification.

	KnownDevices []KnownDevice // At most one entry per DeviceID.
	LastLogin    *time.Time    // Timestamp of the last successful login.

	CreatedAt time.Time // Timestamp of when this account was created.
	UpdatedAt time.Time // Timestamp of the last modification to this account.
}

// Counter returns the issuance counter of the given purpose.
func (a *Account) Counter(purpose OTPPurpose) *OTPCounter {
	if purpose == OTPPurposeForgot {
		return &a.ForgotOTP
	}

	return &a.RegisterOTP
}

// ResetCounter clears the issuance counter after the purpose's terminal action succeeded.
func (a *Account) ResetCounter(purpose OTPPurpose) {
	*a.Counter(purpose) = OTPCounter{}
}

// ClearOTP consumes the in-flight challenge.
func (a *Account) ClearOTP() {
	a.OTP = nil
}

// IsPasswordExpired reports whether the password must be reset before login.
// A missing expiry counts as expired.
func (a *Account) IsPasswordExpired(now time.Time) bool {
	return a.PasswordExpiresAt.IsZero() || now.After(a.PasswordExpiresAt)
}

// MarkVerified flips the account into the verified state.
func (a *Account) MarkVerified(now time.Time) {
	a.IsVerified = true
	a.VerifiedAt = &now
}

// FindDevice returns the known device with the given id.
func (a *Account) FindDevice(deviceID string) (*KnownDevice, bool) {
	idx := slices.IndexFunc(a.KnownDevices, func(d KnownDevice) bool {
		return d.DeviceID == deviceID
	})
	if idx < 0 {
		return nil, false
	}

	return &a.KnownDevices[idx], true
}
