package impl

import (
	"regexp"
	"strings"

	"bidhub/config"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/errors"
)

// accountPolicy normalizes and validates account identity fields.
type accountPolicy struct {
	emailPattern    *regexp.Regexp
	restrictedWords []string
	handleSuffix    string
}

func newAccountPolicy(cfg config.AccountsConfig) (*accountPolicy, error) {
	pattern, err := regexp.Compile(cfg.EmailPattern)
	if err != nil {
		return nil, errors.Wrap(err, "compile email pattern")
	}

	words := make([]string, 0, len(cfg.RestrictedEmailWords))
	for _, word := range cfg.RestrictedEmailWords {
		if word = strings.ToLower(strings.TrimSpace(word)); word != "" {
			words = append(words, word)
		}
	}

	return &accountPolicy{
		emailPattern:    pattern,
		restrictedWords: words,
		handleSuffix:    cfg.HandleSuffix,
	}, nil
}

// normalizeEmail lowercases the email and checks its format and the blocklist.
func (p *accountPolicy) normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" || !p.emailPattern.MatchString(email) {
		return "", errors.Wrapf(domainerrors.ErrInvalidEmail, "malformed email %q", raw)
	}

	local, _, _ := strings.Cut(email, "@")
	for _, word := range p.restrictedWords {
		if strings.Contains(local, word) {
			return "", errors.Wrapf(domainerrors.ErrRestrictedEmail, "email contains %q", word)
		}
	}

	return email, nil
}

// normalizeHandle trims the handle and tags it with the family suffix.
func (p *accountPolicy) normalizeHandle(raw string) (string, error) {
	handle := strings.TrimSpace(raw)
	if handle == "" {
		return "", errors.Wrap(domainerrors.ErrValidationFailed.WithDetails("userName is required"), "empty handle")
	}
	if strings.ContainsAny(handle, " \t\n@") {
		return "", errors.Wrap(domainerrors.ErrValidationFailed.WithDetails("userName must not contain spaces or @"), "malformed handle")
	}
	if !strings.HasSuffix(handle, p.handleSuffix) {
		handle += p.handleSuffix
	}

	return handle, nil
}
