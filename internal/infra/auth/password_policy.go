package auth

import (
	"fmt"
	"strings"
	"unicode"

	"bidhub/config"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"
)

const (
	defaultMinPasswordLength = 8

	// maxPasswordBytes is the longest input bcrypt accepts.
	maxPasswordBytes = 72
)

type strengthPolicy struct {
	minLength int
}

// NewPasswordPolicy requires a minimum length plus lowercase, uppercase,
// digit and special characters.
func NewPasswordPolicy(cfg *config.Config) service.PasswordPolicy {
	minLength := cfg.Password.MinLength
	if minLength <= 0 {
		minLength = defaultMinPasswordLength
	}

	return &strengthPolicy{minLength: minLength}
}

func (p *strengthPolicy) Validate(password string) error {
	if len([]rune(password)) < p.minLength {
		return errors.Wrapf(domainerrors.ErrPasswordStrength, "shorter than %d characters", p.minLength)
	}
	if len(password) > maxPasswordBytes {
		return errors.Wrap(
			domainerrors.ErrPasswordStrength.WithDetails(fmt.Sprintf("password must not exceed %d bytes", maxPasswordBytes)),
			"longer than bcrypt accepts",
		)
	}

	var hasLower, hasUpper, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	var missing []string
	if !hasLower {
		missing = append(missing, "lowercase letter")
	}
	if !hasUpper {
		missing = append(missing, "uppercase letter")
	}
	if !hasDigit {
		missing = append(missing, "number")
	}
	if !hasSpecial {
		missing = append(missing, "special character")
	}
	if len(missing) > 0 {
		return errors.Wrapf(domainerrors.ErrPasswordStrength, "missing %s", strings.Join(missing, ", "))
	}

	return nil
}
