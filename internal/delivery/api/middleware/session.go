package middleware

import (
	"bidhub/internal/delivery/api/cookie"
	deliverycontext "bidhub/internal/delivery/context"
	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/usecase"

	"github.com/labstack/echo/v4"
)

// SessionMiddleware authenticates requests from the session cookie.
type SessionMiddleware struct {
	auth usecase.AuthUsecase
	jar  *cookie.Jar
}

// NewSessionMiddleware is the constructor for SessionMiddleware.
func NewSessionMiddleware(auth usecase.AuthUsecase, jar *cookie.Jar) *SessionMiddleware {
	return &SessionMiddleware{auth: auth, jar: jar}
}

// Authenticate resolves the session of the kind named by the :kind route
// parameter and exposes the verified identity to the handler.
func (m *SessionMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		kind, err := RegistrableKind(c)
		if err != nil {
			return err
		}

		identity, err := m.auth.Authenticate(c.Request().Context(), kind, m.jar.Session(c))
		if err != nil {
			return err
		}

		deliverycontext.SetIdentity(c, identity)

		return next(c)
	}
}

// RegistrableKind parses the :kind route parameter. Kinds without a
// self-service lifecycle are reported as unknown routes.
func RegistrableKind(c echo.Context) (entity.AccountKind, error) {
	kind, ok := entity.ParseAccountKind(c.Param("kind"))
	if !ok || !kind.IsRegistrable() {
		return "", domainerrors.ErrNotFound
	}

	return kind, nil
}
