package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"
)

const csrfTokenBytes = 24

// doubleSubmitGuard needs no server-side storage: the httpOnly cookie is
// the secret and the header is the caller's echo.
type doubleSubmitGuard struct{}

// NewCSRFGuard returns the double-submit CSRF guard.
func NewCSRFGuard() service.CSRFGuard {
	return doubleSubmitGuard{}
}

func (doubleSubmitGuard) Issue() (cookieValue, echoValue string, err error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", errors.Wrap(err, "generate csrf token")
	}
	token := hex.EncodeToString(buf)

	return token, token, nil
}

func (doubleSubmitGuard) Verify(cookieValue, headerValue string) error {
	if cookieValue == "" || headerValue == "" {
		return domainerrors.ErrCSRFMissing
	}
	if subtle.ConstantTimeCompare([]byte(cookieValue), []byte(headerValue)) != 1 {
		return domainerrors.ErrCSRFMismatch
	}

	return nil
}
