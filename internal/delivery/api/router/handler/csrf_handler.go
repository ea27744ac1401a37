package handler

import (
	"net/http"

	"bidhub/config"
	"bidhub/internal/delivery/api/cookie"
	"bidhub/internal/delivery/api/response"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"

	"github.com/labstack/echo/v4"
)

// CSRFHandler mints CSRF token pairs.
type CSRFHandler struct {
	guard      service.CSRFGuard
	jar        *cookie.Jar
	headerName string
}

// NewCSRFHandler is the constructor for CSRFHandler.
func NewCSRFHandler(guard service.CSRFGuard, jar *cookie.Jar, cfg *config.Config) *CSRFHandler {
	return &CSRFHandler{guard: guard, jar: jar, headerName: cfg.CSRF.HeaderName}
}

// Token handles GET /api/v1/csrf-token. The cookie half is httpOnly; the
// body and the response header carry the value the client must echo.
func (h *CSRFHandler) Token(c echo.Context) error {
	cookieValue, echoValue, err := h.guard.Issue()
	if err != nil {
		return errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	h.jar.SetCSRF(c, cookieValue)
	c.Response().Header().Set(h.headerName, echoValue)

	return response.Success(c, http.StatusOK, map[string]string{"csrfToken": echoValue}, "")
}
