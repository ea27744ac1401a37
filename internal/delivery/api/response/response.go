// Package response writes the JSON envelope shared by every endpoint.
package response

import (
	"net/http"

	deliverycontext "bidhub/internal/delivery/context"
	domainerrors "bidhub/internal/domain/errors"

	"github.com/labstack/echo/v4"
)

// Success returns a successful response
func Success(c echo.Context, statusCode int, data any, message string) error {
	return c.JSON(statusCode, domainerrors.SuccessResponse{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    meta(c),
	})
}

// Error returns an error response. Details never leave the server for
// 5xx, 401 or 403 responses.
func Error(c echo.Context, statusCode int, info *domainerrors.ErrorInfo) error {
	if statusCode >= http.StatusInternalServerError || statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden {
		info.Details = nil
	}

	return c.JSON(statusCode, domainerrors.ErrorResponse{
		Success: false,
		Message: info.Message,
		Error:   info,
		Meta:    meta(c),
	})
}

// AppError writes an application error, optionally with its details.
func AppError(c echo.Context, appErr domainerrors.AppError, withDetails bool) error {
	info := &domainerrors.ErrorInfo{
		Code:    appErr.ErrorCode(),
		Kind:    appErr.Kind(),
		Message: appErr.Message(),
	}
	if withDetails && appErr.Details() != "" {
		info.Details = appErr.Details()
	}

	return Error(c, appErr.HTTPCode(), info)
}

func meta(c echo.Context) *domainerrors.MetaInfo {
	return &domainerrors.MetaInfo{
		RequestID: deliverycontext.GetRequestID(c),
	}
}
