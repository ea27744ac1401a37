package middleware

import (
	"net/http"

	"bidhub/config"
	"bidhub/internal/delivery/api/cookie"
	"bidhub/internal/domain/service"

	"github.com/labstack/echo/v4"
)

// CSRFMiddleware enforces the double-submit check on state-changing requests.
type CSRFMiddleware struct {
	guard      service.CSRFGuard
	jar        *cookie.Jar
	headerName string
	skip       bool
}

// NewCSRFMiddleware is the constructor for CSRFMiddleware.
func NewCSRFMiddleware(guard service.CSRFGuard, jar *cookie.Jar, cfg *config.Config) *CSRFMiddleware {
	return &CSRFMiddleware{
		guard:      guard,
		jar:        jar,
		headerName: cfg.CSRF.HeaderName,
		skip:       cfg.CSRF.SkipOutsideProduction && !cfg.IsProduction(),
	}
}

// Protect rejects unsafe requests whose cookie and header tokens do not match.
func (m *CSRFMiddleware) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if m.skip || isSafeMethod(c.Request().Method) {
			return next(c)
		}

		if err := m.guard.Verify(m.jar.CSRF(c), c.Request().Header.Get(m.headerName)); err != nil {
			return err
		}

		return next(c)
	}
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	default:
		return false
	}
}
