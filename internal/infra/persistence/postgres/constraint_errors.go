package postgres

import (
	"strings"

	"bidhub/internal/domain/repository"
	"bidhub/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// isUniqueConstraintViolation covers both translated GORM errors and raw
// driver errors carrying SQLSTATE 23505.
func isUniqueConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	errMsg := strings.ToLower(err.Error())

	return strings.Contains(errMsg, "duplicate key") ||
		strings.Contains(errMsg, "unique constraint") ||
		strings.Contains(errMsg, "23505")
}

// duplicateFromMessage maps a unique violation onto the repository sentinel
// by constraint name. ok is false when the name is not in the message.
func duplicateFromMessage(err error) (dup error, ok bool) {
	errMsg := err.Error()
	switch {
	case strings.Contains(errMsg, model.AccountHandleIndex):
		return repository.ErrDuplicateHandle, true
	case strings.Contains(errMsg, model.AccountEmailIndex):
		return repository.ErrDuplicateEmail, true
	}

	return nil, false
}
