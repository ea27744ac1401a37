// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"
	"time"

	"bidhub/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterInput defines the data required to register a company or worker.
type RegisterInput struct {
	Kind        entity.AccountKind
	Email       string
	Password    string
	Handle      string
	DisplayName string
	Meta        entity.RequestMeta
}

// VerifyEmailInput confirms the registration OTP.
type VerifyEmailInput struct {
	Kind  entity.AccountKind
	Email string
	Code  string
	Meta  entity.RequestMeta
}

// ResendOTPInput requests a fresh registration OTP.
type ResendOTPInput struct {
	Kind  entity.AccountKind
	Email string
	Meta  entity.RequestMeta
}

// LoginInput defines the data required for an account to log in.
type LoginInput struct {
	Kind     entity.AccountKind
	Email    string
	Password string
	Meta     entity.RequestMeta
}

// LogoutInput carries the session being ended, if any.
type LogoutInput struct {
	Kind  entity.AccountKind
	Token string
	Meta  entity.RequestMeta
}

// ForgotPasswordInput requests a password reset OTP.
type ForgotPasswordInput struct {
	Kind  entity.AccountKind
	Email string
	Meta  entity.RequestMeta
}

// ResetPasswordInput replaces the password using a forgot-purpose OTP.
type ResetPasswordInput struct {
	Kind        entity.AccountKind
	Email       string
	Code        string
	NewPassword string
	Meta        entity.RequestMeta
}

// ChangeEmailInput moves an authenticated account to a new email. The
// session it was made from is revoked once the new one is issued.
type ChangeEmailInput struct {
	Kind             entity.AccountKind
	AccountID        uuid.UUID
	NewEmail         string
	CurrentPassword  string
	SessionID        string
	SessionExpiresAt time.Time
	Meta             entity.RequestMeta
}

// --- Output DTOs ---

// RegisterOutput returns the pending account and when its OTP expires.
type RegisterOutput struct {
	Account      *entity.Account
	OTPExpiresAt time.Time
}

// OTPOutput describes a freshly issued OTP without revealing it.
type OTPOutput struct {
	Email     string
	ExpiresAt time.Time
}

// SessionOutput returns the account and its new session.
type SessionOutput struct {
	Account   *entity.Account
	Session   *entity.SessionToken
	NewDevice bool
}

// AuthUsecase defines the account lifecycle for every registrable kind.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	Register(ctx context.Context, input *RegisterInput) (*RegisterOutput, error)
	VerifyEmail(ctx context.Context, input *VerifyEmailInput) (*SessionOutput, error)
	ResendOTP(ctx context.Context, input *ResendOTPInput) (*OTPOutput, error)
	Login(ctx context.Context, input *LoginInput) (*SessionOutput, error)
	Logout(ctx context.Context, input *LogoutInput) error
	ForgotPassword(ctx context.Context, input *ForgotPasswordInput) (*OTPOutput, error)
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
	ChangeEmail(ctx context.Context, input *ChangeEmailInput) (*SessionOutput, error)

	// Authenticate resolves a session token into the identity of a verified account.
	Authenticate(ctx context.Context, kind entity.AccountKind, token string) (*entity.VerifiedIdentity, error)
}
