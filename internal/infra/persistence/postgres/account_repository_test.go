package postgres

import (
	"errors"
	"testing"
	"time"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestAccountMapping_PreservesEmbeddedState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifiedAt := now.Add(-time.Hour)
	account := &entity.Account{
		ID:                uuid.New(),
		Kind:              entity.KindWorker,
		Email:             "w@example.com",
		Handle:            "w.BHCFamily",
		DisplayName:       "Worker",
		PasswordHash:      "hash",
		PasswordExpiresAt: now.Add(30 * 24 * time.Hour),
		IsVerified:        true,
		VerifiedAt:        &verifiedAt,
		OTP:               &entity.OTPChallenge{CodeHash: "otp", Purpose: entity.OTPPurposeForgot, ExpiresAt: now},
		ForgotOTP:         entity.OTPCounter{Count: 4, LockoutUntil: now.Add(time.Hour)},
		FailedOTPAttempts: 2,
		KnownDevices: []entity.KnownDevice{
			{DeviceID: "d1", UserAgent: "ua", SourceIP: "1.1.1.1", FirstSeen: now, LastUsed: now},
		},
	}

	accountM := fromAccountDomain(account)
	assert.Nil(t, accountM.RegisterOTPLockoutUntil)
	require.Len(t, accountM.Devices, 1)
	assert.Equal(t, account.ID, accountM.Devices[0].AccountID)

	got := toAccountDomain(accountM)
	assert.Equal(t, account, got)
}

func TestAccountMapping_NoChallenge(t *testing.T) {
	account := &entity.Account{ID: uuid.New(), Kind: entity.KindCompany}

	got := toAccountDomain(fromAccountDomain(account))
	assert.Nil(t, got.OTP)
	assert.True(t, got.RegisterOTP.LockoutUntil.IsZero())
}

func TestUniqueViolationMapping(t *testing.T) {
	raw := errors.New(`ERROR: duplicate key value violates unique constraint "idx_accounts_kind_handle" (SQLSTATE 23505)`)
	assert.True(t, isUniqueConstraintViolation(raw))

	dup, ok := duplicateFromMessage(raw)
	require.True(t, ok)
	assert.ErrorIs(t, dup, repository.ErrDuplicateHandle)

	dup, ok = duplicateFromMessage(errors.New(`violates unique constraint "idx_accounts_kind_email"`))
	require.True(t, ok)
	assert.ErrorIs(t, dup, repository.ErrDuplicateEmail)

	assert.True(t, isUniqueConstraintViolation(gorm.ErrDuplicatedKey))
	_, ok = duplicateFromMessage(gorm.ErrDuplicatedKey)
	assert.False(t, ok)

	assert.False(t, isUniqueConstraintViolation(errors.New("connection refused")))
}
