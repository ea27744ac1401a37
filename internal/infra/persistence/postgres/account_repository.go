package postgres

import (
	"context"
	"time"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/repository"
	"bidhub/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// accountRepository implements repository.AccountRepository using GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository is the constructor for accountRepository.
func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepository{db: db}
}

func (repo *accountRepository) FindByEmail(ctx context.Context, kind entity.AccountKind, email string) (*entity.Account, error) {
	return repo.findOne(ctx, "kind = ? AND email = ?", kind.String(), email)
}

func (repo *accountRepository) FindByHandle(ctx context.Context, kind entity.AccountKind, handle string) (*entity.Account, error) {
	return repo.findOne(ctx, "kind = ? AND handle = ?", kind.String(), handle)
}

func (repo *accountRepository) FindByID(ctx context.Context, kind entity.AccountKind, id uuid.UUID) (*entity.Account, error) {
	return repo.findOne(ctx, "kind = ? AND id = ?", kind.String(), id)
}

func (repo *accountRepository) findOne(ctx context.Context, query string, args ...any) (*entity.Account, error) {
	var accountM model.AccountModel
	err := repo.db.WithContext(ctx).
		Preload("Devices", func(db *gorm.DB) *gorm.DB { return db.Order("first_seen ASC") }).
		Where(query, args...).
		First(&accountM).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrAccountNotFound
		}

		return nil, errors.Wrap(err, "failed to find account")
	}

	return toAccountDomain(&accountM), nil
}

// Create inserts the account row and its device rows in one transaction.
func (repo *accountRepository) Create(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	err := runInTransaction(ctx, repo.db, func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(accountM).Error; err != nil {
			return err
		}
		if len(accountM.Devices) == 0 {
			return nil
		}

		return tx.Create(&accountM.Devices).Error
	})
	if err != nil {
		return repo.translate(ctx, account, err, "failed to create account")
	}

	return nil
}

// Save replaces the account row and its device set in one transaction.
func (repo *accountRepository) Save(ctx context.Context, account *entity.Account) error {
	accountM := fromAccountDomain(account)

	err := runInTransaction(ctx, repo.db, func(tx *gorm.DB) error {
		result := tx.Model(&model.AccountModel{}).
			Where("id = ? AND kind = ?", accountM.ID, accountM.Kind).
			Select("*").
			Omit("id", "kind", "created_at", clause.Associations).
			Updates(accountM)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return repository.ErrAccountNotFound
		}

		if err := tx.Where("account_id = ?", accountM.ID).Delete(&model.AccountDeviceModel{}).Error; err != nil {
			return errors.Wrap(err, "failed to clear devices")
		}
		if len(accountM.Devices) == 0 {
			return nil
		}

		return tx.Create(&accountM.Devices).Error
	})
	if err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			return err
		}

		return repo.translate(ctx, account, err, "failed to save account")
	}

	return nil
}

// translate maps constraint violations onto repository sentinels.
func (repo *accountRepository) translate(ctx context.Context, account *entity.Account, err error, msg string) error {
	if !isUniqueConstraintViolation(err) {
		return errors.Wrap(err, msg)
	}
	if dup, ok := duplicateFromMessage(err); ok {
		return dup
	}

	// Translated errors drop the constraint name, so look at who holds the handle.
	if other, findErr := repo.FindByHandle(ctx, account.Kind, account.Handle); findErr == nil && other.ID != account.ID {
		return repository.ErrDuplicateHandle
	}

	return repository.ErrDuplicateEmail
}

func fromAccountDomain(account *entity.Account) *model.AccountModel {
	accountM := &model.AccountModel{
		ID:                account.ID,
		Kind:              account.Kind.String(),
		Email:             account.Email,
		Handle:            account.Handle,
		DisplayName:       account.DisplayName,
		PasswordHash:      account.PasswordHash,
		PasswordExpiresAt: account.PasswordExpiresAt,
		IsVerified:        account.IsVerified,
		VerifiedAt:        account.VerifiedAt,
		RegisterOTPCount:  account.RegisterOTP.Count,
		ForgotOTPCount:    account.ForgotOTP.Count,
		FailedOTPAttempts: account.FailedOTPAttempts,
		LastLogin:         account.LastLogin,
		CreatedAt:         account.CreatedAt,
		UpdatedAt:         account.UpdatedAt,
	}
	if account.OTP != nil {
		codeHash := account.OTP.CodeHash
		purpose := account.OTP.Purpose.String()
		expiresAt := account.OTP.ExpiresAt
		accountM.OTPCodeHash = &codeHash
		accountM.OTPPurpose = &purpose
		accountM.OTPExpiresAt = &expiresAt
	}
	accountM.RegisterOTPLockoutUntil = timePtr(account.RegisterOTP.LockoutUntil)
	accountM.ForgotOTPLockoutUntil = timePtr(account.ForgotOTP.LockoutUntil)

	for _, device := range account.KnownDevices {
		accountM.Devices = append(accountM.Devices, model.AccountDeviceModel{
			AccountID: account.ID,
			DeviceID:  device.DeviceID,
			UserAgent: device.UserAgent,
			SourceIP:  device.SourceIP,
			FirstSeen: device.FirstSeen,
			LastUsed:  device.LastUsed,
		})
	}

	return accountM
}

func toAccountDomain(accountM *model.AccountModel) *entity.Account {
	account := &entity.Account{
		ID:                accountM.ID,
		Kind:              entity.AccountKind(accountM.Kind),
		Email:             accountM.Email,
		Handle:            accountM.Handle,
		DisplayName:       accountM.DisplayName,
		PasswordHash:      accountM.PasswordHash,
		PasswordExpiresAt: accountM.PasswordExpiresAt,
		IsVerified:        accountM.IsVerified,
		VerifiedAt:        accountM.VerifiedAt,
		RegisterOTP:       entity.OTPCounter{Count: accountM.RegisterOTPCount, LockoutUntil: timeValue(accountM.RegisterOTPLockoutUntil)},
		ForgotOTP:         entity.OTPCounter{Count: accountM.ForgotOTPCount, LockoutUntil: timeValue(accountM.ForgotOTPLockoutUntil)},
		FailedOTPAttempts: accountM.FailedOTPAttempts,
		LastLogin:         accountM.LastLogin,
		CreatedAt:         accountM.CreatedAt,
		UpdatedAt:         accountM.UpdatedAt,
	}
	if accountM.OTPCodeHash != nil && accountM.OTPPurpose != nil && accountM.OTPExpiresAt != nil {
		account.OTP = &entity.OTPChallenge{
			CodeHash:  *accountM.OTPCodeHash,
			Purpose:   entity.OTPPurpose(*accountM.OTPPurpose),
			ExpiresAt: *accountM.OTPExpiresAt,
		}
	}

	for _, deviceM := range accountM.Devices {
		account.KnownDevices = append(account.KnownDevices, entity.KnownDevice{
			DeviceID:  deviceM.DeviceID,
			UserAgent: deviceM.UserAgent,
			SourceIP:  deviceM.SourceIP,
			FirstSeen: deviceM.FirstSeen,
			LastUsed:  deviceM.LastUsed,
		})
	}

	return account
}

func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}

	return &t
}

func timeValue(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}
