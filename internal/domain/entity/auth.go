package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionToken is a freshly minted signed session.
type SessionToken struct {
	Token     string      // The signed token string delivered in the session cookie.
	ID        string      // Token identifier (jti), used for revocation.
	AccountID uuid.UUID   // The account the session is bound to.
	Kind      AccountKind // The kind whose signing material produced the token.
	ExpiresAt time.Time   // Natural expiry of the token.
}

// SessionClaims is the verified content of a session token.
type SessionClaims struct {
	TokenID   string
	AccountID uuid.UUID
	Kind      AccountKind
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerifiedIdentity is exposed to the rest of the application once a
// session has been validated against a verified account.
type VerifiedIdentity struct {
	AccountID   uuid.UUID   `json:"id"`
	Kind        AccountKind `json:"kind"`
	Email       string      `json:"email"`
	Handle      string      `json:"handle"`
	DisplayName string      `json:"displayName"`
	VerifiedAt  *time.Time  `json:"verifiedAt,omitempty"`
	LastLogin   *time.Time  `json:"lastLogin,omitempty"`
	SessionID   string      `json:"-"`

	// SessionExpiresAt is the natural expiry of the session, kept so the
	// session can be revoked.
	SessionExpiresAt time.Time `json:"-"`
}

// NewVerifiedIdentity projects an account into the identity exposed to callers.
func NewVerifiedIdentity(account *Account, sessionID string) *VerifiedIdentity {
	return &VerifiedIdentity{
		AccountID:   account.ID,
		Kind:        account.Kind,
		Email:       account.Email,
		Handle:      account.Handle,
		DisplayName: account.DisplayName,
		VerifiedAt:  account.VerifiedAt,
		LastLogin:   account.LastLogin,
		SessionID:   sessionID,
	}
}
