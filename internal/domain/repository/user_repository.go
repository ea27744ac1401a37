// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"errors"

	"bidhub/internal/domain/entity"

	"github.com/google/uuid"
)

// Domain-specific errors for account persistence.
var (
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
	// ErrDuplicateEmail is returned when the email is already taken for the kind.
	ErrDuplicateEmail = errors.New("account email already exists")
	// ErrDuplicateHandle is returned when the handle is already taken for the kind.
	ErrDuplicateHandle = errors.New("account handle already exists")
)

// AccountRepository is the Account Store. Every implementation persists the
// whole aggregate, embedded OTP state and known devices included, atomically.
type AccountRepository interface {
	// FindByEmail retrieves an account of the given kind by normalized email.
	FindByEmail(ctx context.Context, kind entity.AccountKind, email string) (*entity.Account, error)

	// FindByHandle retrieves an account of the given kind by handle.
	FindByHandle(ctx context.Context, kind entity.AccountKind, handle string) (*entity.Account, error)

	// FindByID retrieves an account of the given kind by id.
	FindByID(ctx context.Context, kind entity.AccountKind, id uuid.UUID) (*entity.Account, error)

	// Create persists a new account.
	Create(ctx context.Context, account *entity.Account) error

	// Save replaces the stored state of an existing account.
	Save(ctx context.Context, account *entity.Account) error
}
