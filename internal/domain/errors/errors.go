package errors

import (
	"net/http"

	"bidhub/internal/errors"
)

// ErrorKind is the stable, caller-recoverable category of a failure.
type ErrorKind string

const (
	KindValidation          ErrorKind = "VALIDATION"
	KindConflict            ErrorKind = "CONFLICT"
	KindNotFoundOrForbidden ErrorKind = "NOT_FOUND_OR_FORBIDDEN"
	KindRateLimited         ErrorKind = "RATE_LIMITED"
	KindLockedOut           ErrorKind = "LOCKED_OUT"
	KindExpired             ErrorKind = "EXPIRED"
	KindUnauthorized        ErrorKind = "UNAUTHORIZED"
	KindDeliveryFailure     ErrorKind = "DELIVERY_FAILURE"
	KindServerError         ErrorKind = "SERVER_ERROR"
)

// AppError defines the interface for application-specific errors
type AppError interface {
	error
	HTTPCode() int     // HTTP status code
	ErrorCode() string // Business error code
	Kind() ErrorKind   // Error category
	Message() string   // User-friendly error message
	Details() string   // Detailed error information (optional)
}

// BaseError is a basic error structure that implements the AppError interface
type BaseError struct {
	httpCode  int
	errorCode string
	kind      ErrorKind
	message   string
	details   string
}

// NewBaseError creates a new base error
func NewBaseError(httpCode int, errorCode string, kind ErrorKind, message, details string) *BaseError {
	return &BaseError{
		httpCode:  httpCode,
		errorCode: errorCode,
		kind:      kind,
		message:   message,
		details:   details,
	}
}

// Error implements the error interface
func (e *BaseError) Error() string {
	return e.message
}

// WrapMessage wraps the error with additional context message
func (e *BaseError) WrapMessage(message string) error {
	return errors.Wrap(e, message)
}

// HTTPCode returns the HTTP status code
func (e *BaseError) HTTPCode() int {
	return e.httpCode
}

// ErrorCode returns the business error code
func (e *BaseError) ErrorCode() string {
	return e.errorCode
}

// Kind returns the error category
func (e *BaseError) Kind() ErrorKind {
	return e.kind
}

// Message returns the user-friendly error message
func (e *BaseError) Message() string {
	return e.message
}

// Details returns detailed error information
func (e *BaseError) Details() string {
	return e.details
}

// WithDetails adds detailed error information
func (e *BaseError) WithDetails(details string) *BaseError {
	return &BaseError{
		httpCode:  e.httpCode,
		errorCode: e.errorCode,
		kind:      e.kind,
		message:   e.message,
		details:   details,
	}
}

// Is matches errors sharing the same business code, so a WithDetails copy
// still satisfies errors.Is against the predefined value.
func (e *BaseError) Is(target error) bool {
	t, ok := target.(*BaseError)
	if !ok {
		return false
	}

	return e.errorCode == t.errorCode
}

// Predefined error types
var (
	// Validation errors
	ErrValidationFailed = NewBaseError(
		http.StatusBadRequest,
		"VALIDATION_FAILED",
		KindValidation,
		"Invalid input",
		"",
	)

	ErrInvalidEmail = NewBaseError(
		http.StatusBadRequest,
		"INVALID_EMAIL",
		KindValidation,
		"Invalid email address",
		"",
	)

	ErrRestrictedEmail = NewBaseError(
		http.StatusBadRequest,
		"RESTRICTED_EMAIL",
		KindValidation,
		"This email address cannot be used",
		"",
	)

	ErrPasswordStrength = NewBaseError(
		http.StatusBadRequest,
		"PASSWORD_STRENGTH",
		KindValidation,
		"Password must be at least 8 characters long and contain an uppercase letter, a lowercase letter, a number and a special character",
		"",
	)

	ErrInvalidAccountKind = NewBaseError(
		http.StatusBadRequest,
		"INVALID_ACCOUNT_KIND",
		KindValidation,
		"Unsupported account type",
		"",
	)

	// Account conflicts
	ErrAccountAlreadyExists = NewBaseError(
		http.StatusConflict,
		"ACCOUNT_ALREADY_EXISTS",
		KindConflict,
		"Email is already registered",
		"",
	)

	ErrAccountAlreadyVerified = NewBaseError(
		http.StatusConflict,
		"ACCOUNT_ALREADY_VERIFIED",
		KindConflict,
		"Account is already verified",
		"",
	)

	ErrHandleTaken = NewBaseError(
		http.StatusConflict,
		"HANDLE_TAKEN",
		KindConflict,
		"Username is already taken",
		"",
	)

	// Account lookup errors
	ErrAccountNotFound = NewBaseError(
		http.StatusForbidden,
		"ACCOUNT_NOT_FOUND",
		KindNotFoundOrForbidden,
		"Invalid credentials",
		"",
	)

	ErrAccountNotVerified = NewBaseError(
		http.StatusForbidden,
		"ACCOUNT_NOT_VERIFIED",
		KindNotFoundOrForbidden,
		"Account is not verified",
		"",
	)

	// OTP errors
	ErrOTPLockedOut = NewBaseError(
		http.StatusTooManyRequests,
		"OTP_LOCKED_OUT",
		KindLockedOut,
		"Too many OTP requests. Please try again later",
		"",
	)

	ErrOTPAttemptsExceeded = NewBaseError(
		http.StatusTooManyRequests,
		"OTP_ATTEMPTS_EXCEEDED",
		KindLockedOut,
		"Too many failed OTP attempts",
		"",
	)

	ErrOTPIssueInProgress = NewBaseError(
		http.StatusTooManyRequests,
		"OTP_ISSUE_IN_PROGRESS",
		KindRateLimited,
		"An OTP request is already in progress",
		"",
	)

	ErrOTPNotIssued = NewBaseError(
		http.StatusBadRequest,
		"OTP_NOT_ISSUED",
		KindUnauthorized,
		"No OTP has been requested",
		"",
	)

	ErrOTPInvalid = NewBaseError(
		http.StatusBadRequest,
		"OTP_INVALID",
		KindUnauthorized,
		"Invalid OTP",
		"",
	)

	ErrOTPExpired = NewBaseError(
		http.StatusBadRequest,
		"OTP_EXPIRED",
		KindExpired,
		"OTP has expired",
		"",
	)

	ErrOTPDeliveryFailed = NewBaseError(
		http.StatusBadGateway,
		"OTP_DELIVERY_FAILED",
		KindDeliveryFailure,
		"Failed to send OTP",
		"",
	)

	// Credential and session errors
	ErrInvalidCredentials = NewBaseError(
		http.StatusUnauthorized,
		"INVALID_CREDENTIALS",
		KindUnauthorized,
		"Invalid credentials",
		"",
	)

	ErrPasswordExpired = NewBaseError(
		http.StatusForbidden,
		"PASSWORD_EXPIRED",
		KindExpired,
		"Password has expired. Please reset your password",
		"",
	)

	ErrSessionMissing = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_MISSING",
		KindUnauthorized,
		"Not authenticated. Please login",
		"",
	)

	ErrSessionInvalid = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_INVALID",
		KindUnauthorized,
		"Invalid session",
		"",
	)

	ErrSessionExpired = NewBaseError(
		http.StatusUnauthorized,
		"SESSION_EXPIRED",
		KindExpired,
		"Session expired. Please login again",
		"",
	)

	ErrCSRFMissing = NewBaseError(
		http.StatusForbidden,
		"CSRF_MISSING",
		KindUnauthorized,
		"Missing CSRF token",
		"",
	)

	ErrCSRFMismatch = NewBaseError(
		http.StatusForbidden,
		"CSRF_MISMATCH",
		KindUnauthorized,
		"Invalid CSRF token",
		"",
	)

	// General errors
	ErrPasswordHashFailed = NewBaseError(
		http.StatusInternalServerError,
		"PASSWORD_HASH_FAILED",
		KindServerError,
		"Failed to process password",
		"",
	)

	ErrInternalError = NewBaseError(
		http.StatusInternalServerError,
		"INTERNAL_ERROR",
		KindServerError,
		"Something went wrong",
		"",
	)

	ErrNotFound = NewBaseError(
		http.StatusNotFound,
		"NOT_FOUND",
		KindNotFoundOrForbidden,
		"Resource not found",
		"",
	)

	ErrTooManyRequests = NewBaseError(
		http.StatusTooManyRequests,
		"TOO_MANY_REQUESTS",
		KindRateLimited,
		"Too many requests from this IP, please try again later",
		"",
	)
)

// DatabaseExecuteError represents a database execution error, implementing the AppError interface
type DatabaseExecuteError struct {
	err     error
	details string
}

// NewDatabaseExecuteError creates a database-related error
func NewDatabaseExecuteError(err error, details string) AppError {
	return &DatabaseExecuteError{
		err:     err,
		details: details,
	}
}

// Error implements the error interface
func (e *DatabaseExecuteError) Error() string {
	return errors.Wrap(e.err, "database execution failed").Error()
}

// Unwrap exposes the driver error.
func (e *DatabaseExecuteError) Unwrap() error {
	return e.err
}

// HTTPCode returns the HTTP status code
func (e *DatabaseExecuteError) HTTPCode() int {
	return http.StatusInternalServerError
}

// ErrorCode returns the business error code
func (e *DatabaseExecuteError) ErrorCode() string {
	return "DATABASE_EXECUTE_FAILED"
}

// Kind returns the error category
func (e *DatabaseExecuteError) Kind() ErrorKind {
	return KindServerError
}

// Message returns the user-friendly error message
func (e *DatabaseExecuteError) Message() string {
	return "Something went wrong"
}

// Details returns detailed error information
func (e *DatabaseExecuteError) Details() string {
	return e.details
}
