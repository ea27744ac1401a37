// Package memory provides a process-local Account Store for development and tests.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"

	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/repository"

	"github.com/google/uuid"
)

type accountKey struct {
	kind  entity.AccountKind
	value string
}

// AccountRepository keeps accounts in maps guarded by one mutex. Callers
// always receive copies, so mutations only land through Save.
type AccountRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*entity.Account
	byEmail  map[accountKey]uuid.UUID
	byHandle map[accountKey]uuid.UUID
}

// NewAccountRepository creates an empty store.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		accounts: make(map[uuid.UUID]*entity.Account),
		byEmail:  make(map[accountKey]uuid.UUID),
		byHandle: make(map[accountKey]uuid.UUID),
	}
}

func (r *AccountRepository) FindByEmail(_ context.Context, kind entity.AccountKind, email string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(r.byEmail, accountKey{kind, strings.ToLower(email)})
}

func (r *AccountRepository) FindByHandle(_ context.Context, kind entity.AccountKind, handle string) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(r.byHandle, accountKey{kind, handle})
}

func (r *AccountRepository) FindByID(_ context.Context, kind entity.AccountKind, id uuid.UUID) (*entity.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[id]
	if !ok || account.Kind != kind {
		return nil, repository.ErrAccountNotFound
	}

	return cloneAccount(account), nil
}

func (r *AccountRepository) Create(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.checkUnique(account); err != nil {
		return err
	}

	r.store(account)

	return nil
}

func (r *AccountRepository) Save(_ context.Context, account *entity.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.accounts[account.ID]
	if !ok || current.Kind != account.Kind {
		return repository.ErrAccountNotFound
	}
	if err := r.checkUnique(account); err != nil {
		return err
	}

	delete(r.byEmail, accountKey{current.Kind, current.Email})
	delete(r.byHandle, accountKey{current.Kind, current.Handle})
	r.store(account)

	return nil
}

// checkUnique rejects email or handle collisions with other accounts.
func (r *AccountRepository) checkUnique(account *entity.Account) error {
	if id, ok := r.byEmail[accountKey{account.Kind, strings.ToLower(account.Email)}]; ok && id != account.ID {
		return repository.ErrDuplicateEmail
	}
	if id, ok := r.byHandle[accountKey{account.Kind, account.Handle}]; ok && id != account.ID {
		return repository.ErrDuplicateHandle
	}

	return nil
}

func (r *AccountRepository) store(account *entity.Account) {
	stored := cloneAccount(account)
	stored.Email = strings.ToLower(stored.Email)
	r.accounts[stored.ID] = stored
	r.byEmail[accountKey{stored.Kind, stored.Email}] = stored.ID
	r.byHandle[accountKey{stored.Kind, stored.Handle}] = stored.ID
}

func (r *AccountRepository) lookup(index map[accountKey]uuid.UUID, key accountKey) (*entity.Account, error) {
	id, ok := index[key]
	if !ok {
		return nil, repository.ErrAccountNotFound
	}

	return cloneAccount(r.accounts[id]), nil
}

func cloneAccount(account *entity.Account) *entity.Account {
	clone := *account
	if account.OTP != nil {
		otp := *account.OTP
		clone.OTP = &otp
	}
	if account.VerifiedAt != nil {
		verifiedAt := *account.VerifiedAt
		clone.VerifiedAt = &verifiedAt
	}
	if account.LastLogin != nil {
		lastLogin := *account.LastLogin
		clone.LastLogin = &lastLogin
	}
	clone.KnownDevices = slices.Clone(account.KnownDevices)

	return &clone
}
