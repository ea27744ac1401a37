// Package middleware contains the API-specific echo middlewares.
package middleware

import (
	"log/slog"
	"net/http"

	"bidhub/config"
	"bidhub/internal/delivery/api/response"
	deliverycontext "bidhub/internal/delivery/context"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/errors"

	"github.com/labstack/echo/v4"
)

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger        *slog.Logger
	exposeDetails bool
}

// NewErrorMiddleware creates a new error handling middleware. Error details
// are only exposed in development.
func NewErrorMiddleware(logger *slog.Logger, cfg *config.Config) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger:        logger,
		exposeDetails: cfg.IsDevelopment(),
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			m.logError(c, err)
		}
		_ = response.AppError(c, appErr, m.exposeDetails)

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = response.AppError(c, fromHTTPError(httpErr), m.exposeDetails)

		return
	}

	m.logError(c, err)
	_ = response.AppError(c, domainerrors.ErrInternalError, false)
}

func (m *ErrorMiddleware) logError(c echo.Context, err error) {
	req := c.Request()
	deliverycontext.GetLoggerOrDefault(req.Context(), m.logger).Error("Unhandled error",
		slog.Any("error", err),
		slog.String("path", req.URL.Path),
		slog.String("method", req.Method),
	)
}

// fromHTTPError maps echo's framework errors (routing, body limit, rate
// limit, binding) onto the error taxonomy.
func fromHTTPError(httpErr *echo.HTTPError) domainerrors.AppError {
	switch httpErr.Code {
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return domainerrors.ErrNotFound
	case http.StatusTooManyRequests:
		return domainerrors.ErrTooManyRequests
	}

	if httpErr.Code >= http.StatusInternalServerError {
		return domainerrors.ErrInternalError
	}

	message := http.StatusText(httpErr.Code)
	if msg, ok := httpErr.Message.(string); ok {
		message = msg
	}

	kind := domainerrors.KindValidation
	switch httpErr.Code {
	case http.StatusUnauthorized:
		kind = domainerrors.KindUnauthorized
	case http.StatusForbidden:
		kind = domainerrors.KindNotFoundOrForbidden
	}

	return domainerrors.NewBaseError(httpErr.Code, "HTTP_ERROR", kind, message, "")
}
