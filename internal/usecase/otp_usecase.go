package usecase

import (
	"context"
	"time"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/service"
)

// OTPIssueResult describes a delivered one-time code.
type OTPIssueResult struct {
	ExpiresAt    time.Time
	Attempts     int
	Remaining    int
	LockoutUntil *time.Time
	Receipt      *service.DeliveryReceipt
}

// OTPUsecase issues and verifies one-time codes. It mutates the account in
// memory only; the caller persists the account in a single save.
type OTPUsecase interface {
	// Issue delivers a new code for the purpose. The account is left untouched
	// when issuance is locked out or delivery fails.
	Issue(ctx context.Context, account *entity.Account, purpose entity.OTPPurpose) (*OTPIssueResult, error)

	// Verify checks a submitted code and consumes the challenge on success.
	Verify(ctx context.Context, account *entity.Account, purpose entity.OTPPurpose, code string) error
}
