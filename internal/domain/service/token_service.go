package service

import (
	"context"
	"errors"
	"time"

	"bidhub/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrLockNotAcquired is returned when another holder owns the lock.
var ErrLockNotAcquired = errors.New("lock not acquired")

// SessionTokenService mints and verifies signed session tokens.
// Each account kind has independent signing material, so a token of one
// kind never verifies under another.
type SessionTokenService interface {
	// Issue creates a session token bound to an account and kind.
	Issue(accountID uuid.UUID, kind entity.AccountKind) (*entity.SessionToken, error)

	// Verify checks a token against the expected kind's material.
	Verify(token string, expectedKind entity.AccountKind) (*entity.SessionClaims, error)

	// TTL returns the session lifetime of the kind.
	TTL(kind entity.AccountKind) time.Duration
}

// SessionRevoker tracks sessions ended before their natural expiry.
type SessionRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// CSRFGuard issues and checks double-submit token pairs.
type CSRFGuard interface {
	// Issue returns the value for the httpOnly cookie and the value the
	// caller must echo in the request header.
	Issue() (cookieValue, echoValue string, err error)

	// Verify succeeds iff both values are present and equal.
	Verify(cookieValue, headerValue string) error
}

// IssueLocker serializes OTP issuance per account.
type IssueLocker interface {
	// Acquire returns ErrLockNotAcquired when the key is already held.
	Acquire(ctx context.Context, key string) (unlock func(context.Context) error, err error)
}

// Clock abstracts the current time.
type Clock interface {
	Now() time.Time
}
