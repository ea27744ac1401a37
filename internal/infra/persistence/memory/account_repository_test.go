package memory

import (
	"context"
	"testing"
	"time"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccount(kind entity.AccountKind, email, handle string) *entity.Account {
	return &entity.Account{
		ID:     uuid.New(),
		Kind:   kind,
		Email:  email,
		Handle: handle,
	}
}

func TestAccountRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	account := newAccount(entity.KindCompany, "acme@example.com", "acme.BHCFamily")

	require.NoError(t, repo.Create(ctx, account))

	byEmail, err := repo.FindByEmail(ctx, entity.KindCompany, "acme@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byEmail.ID)

	byHandle, err := repo.FindByHandle(ctx, entity.KindCompany, "acme.BHCFamily")
	require.NoError(t, err)
	assert.Equal(t, account.ID, byHandle.ID)

	byID, err := repo.FindByID(ctx, entity.KindCompany, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Email, byID.Email)
}

func TestAccountRepository_KindsAreIsolated(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	company := newAccount(entity.KindCompany, "same@example.com", "same.BHCFamily")
	worker := newAccount(entity.KindWorker, "same@example.com", "same.BHCFamily")

	require.NoError(t, repo.Create(ctx, company))
	require.NoError(t, repo.Create(ctx, worker))

	_, err := repo.FindByID(ctx, entity.KindWorker, company.ID)
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	found, err := repo.FindByEmail(ctx, entity.KindWorker, "same@example.com")
	require.NoError(t, err)
	assert.Equal(t, worker.ID, found.ID)
}

func TestAccountRepository_Uniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	require.NoError(t, repo.Create(ctx, newAccount(entity.KindWorker, "a@example.com", "a.BHCFamily")))

	err := repo.Create(ctx, newAccount(entity.KindWorker, "A@example.com", "b.BHCFamily"))
	assert.ErrorIs(t, err, repository.ErrDuplicateEmail)

	err = repo.Create(ctx, newAccount(entity.KindWorker, "b@example.com", "a.BHCFamily"))
	assert.ErrorIs(t, err, repository.ErrDuplicateHandle)

	other := newAccount(entity.KindWorker, "c@example.com", "c.BHCFamily")
	require.NoError(t, repo.Create(ctx, other))
	other.Handle = "a.BHCFamily"
	assert.ErrorIs(t, repo.Save(ctx, other), repository.ErrDuplicateHandle)
}

func TestAccountRepository_SaveReindexesAndCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewAccountRepository()
	account := newAccount(entity.KindCompany, "old@example.com", "old.BHCFamily")
	require.NoError(t, repo.Create(ctx, account))

	loaded, err := repo.FindByID(ctx, entity.KindCompany, account.ID)
	require.NoError(t, err)
	loaded.Email = "new@example.com"
	loaded.OTP = &entity.OTPChallenge{Purpose: entity.OTPPurposeRegister, ExpiresAt: time.Now()}
	loaded.KnownDevices = append(loaded.KnownDevices, entity.KnownDevice{DeviceID: "d1"})

	// Mutating a loaded copy does not touch the store until Save.
	again, err := repo.FindByID(ctx, entity.KindCompany, account.ID)
	require.NoError(t, err)
	assert.Nil(t, again.OTP)
	assert.Empty(t, again.KnownDevices)

	require.NoError(t, repo.Save(ctx, loaded))

	_, err = repo.FindByEmail(ctx, entity.KindCompany, "old@example.com")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)

	saved, err := repo.FindByEmail(ctx, entity.KindCompany, "new@example.com")
	require.NoError(t, err)
	require.NotNil(t, saved.OTP)
	assert.Len(t, saved.KnownDevices, 1)
}

func TestAccountRepository_SaveUnknown(t *testing.T) {
	repo := NewAccountRepository()

	err := repo.Save(context.Background(), newAccount(entity.KindCompany, "x@example.com", "x"))
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}
