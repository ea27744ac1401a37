// Package handler contains the HTTP handlers of the API.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"bidhub/internal/delivery/api/cookie"
	"bidhub/internal/delivery/api/middleware"
	"bidhub/internal/delivery/api/response"
	deliverycontext "bidhub/internal/delivery/context"
	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/errors"
	"bidhub/internal/usecase"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

// AuthHandlerParams holds dependencies for AuthHandler, injected by Fx.
type AuthHandlerParams struct {
	fx.In

	AuthUC usecase.AuthUsecase
	Jar    *cookie.Jar
	Logger *slog.Logger
}

// AuthHandler serves the account lifecycle of every registrable kind.
type AuthHandler struct {
	authUC usecase.AuthUsecase
	jar    *cookie.Jar
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler
func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		authUC: params.AuthUC,
		jar:    params.Jar,
		logger: params.Logger,
	}
}

// RegisterRequest carries both display name attributes; the kind decides which one applies.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	Password    string `json:"password" validate:"required,max=72"`
	UserName    string `json:"userName" validate:"required,max=64"`
	CompanyName string `json:"companyName" validate:"max=128"`
	FullName    string `json:"fullName" validate:"max=128"`
}

// EmailRequest is the body of resend-otp and forgot-password.
type EmailRequest struct {
	Email string `json:"email" validate:"required,max=254"`
}

// VerifyEmailRequest confirms a registration OTP.
type VerifyEmailRequest struct {
	Email string `json:"email" validate:"required,max=254"`
	OTP   string `json:"otp" validate:"required,numeric,max=12"`
}

// LoginRequest represents the login body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// ResetPasswordRequest replaces a password with a forgot-purpose OTP.
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,max=254"`
	OTP         string `json:"otp" validate:"required,numeric,max=12"`
	NewPassword string `json:"newPassword" validate:"required,max=72"`
}

// ChangeEmailRequest moves the authenticated account to a new email.
type ChangeEmailRequest struct {
	Email           string `json:"email" validate:"required,max=254"`
	CurrentPassword string `json:"currentPassword" validate:"required,max=72"`
}

// OTPResponse tells the client where the code went and until when it is valid.
type OTPResponse struct {
	Email        string    `json:"email"`
	UserName     string    `json:"userName,omitempty"`
	OTPExpiresAt time.Time `json:"otpExpiresAt"`
}

// Register handles POST /api/v1/:kind/register.
func (h *AuthHandler) Register(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	var req RegisterRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	displayName := req.FullName
	if kind == entity.KindCompany {
		displayName = req.CompanyName
	}

	output, err := h.authUC.Register(c.Request().Context(), &usecase.RegisterInput{
		Kind:        kind,
		Email:       req.Email,
		Password:    req.Password,
		Handle:      req.UserName,
		DisplayName: displayName,
		Meta:        deliverycontext.RequestMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusCreated, OTPResponse{
		Email:        output.Account.Email,
		UserName:     output.Account.Handle,
		OTPExpiresAt: output.OTPExpiresAt,
	}, "OTP sent to your email")
}

// VerifyEmail handles POST /api/v1/:kind/verify-email and opens the session.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	var req VerifyEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.authUC.VerifyEmail(c.Request().Context(), &usecase.VerifyEmailInput{
		Kind:  kind,
		Email: req.Email,
		Code:  req.OTP,
		Meta:  deliverycontext.RequestMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.jar.SetSession(c, output.Session)

	return response.Success(c, http.StatusOK, entity.NewVerifiedIdentity(output.Account, output.Session.ID), "Email verified successfully")
}

// ResendOTP handles POST /api/v1/:kind/resend-otp.
func (h *AuthHandler) ResendOTP(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.authUC.ResendOTP(c.Request().Context(), &usecase.ResendOTPInput{
		Kind:  kind,
		Email: req.Email,
		Meta:  deliverycontext.RequestMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, OTPResponse{Email: output.Email, OTPExpiresAt: output.ExpiresAt}, "OTP resent to your email")
}

// Login handles POST /api/v1/:kind/login.
func (h *AuthHandler) Login(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.authUC.Login(c.Request().Context(), &usecase.LoginInput{
		Kind:     kind,
		Email:    req.Email,
		Password: req.Password,
		Meta:     deliverycontext.RequestMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.jar.SetSession(c, output.Session)

	return response.Success(c, http.StatusOK, entity.NewVerifiedIdentity(output.Account, output.Session.ID), "Login successful")
}

// Logout handles POST /api/v1/:kind/logout. The cookie is cleared whatever the session state.
func (h *AuthHandler) Logout(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	if err := h.authUC.Logout(c.Request().Context(), &usecase.LogoutInput{
		Kind:  kind,
		Token: h.jar.Session(c),
		Meta:  deliverycontext.RequestMeta(c),
	}); err != nil {
		return errors.WithStack(err)
	}

	h.jar.ClearSession(c)

	return response.Success(c, http.StatusOK, nil, "Logout successful")
}

// ForgotPassword handles POST /api/v1/:kind/forgot-password.
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	var req EmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.authUC.ForgotPassword(c.Request().Context(), &usecase.ForgotPasswordInput{
		Kind:  kind,
		Email: req.Email,
		Meta:  deliverycontext.RequestMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, OTPResponse{Email: output.Email, OTPExpiresAt: output.ExpiresAt}, "Password reset OTP sent to your email")
}

// ResetPassword handles POST /api/v1/:kind/reset-password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	kind, err := middleware.RegistrableKind(c)
	if err != nil {
		return err
	}

	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.authUC.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Kind:        kind,
		Email:       req.Email,
		Code:        req.OTP,
		NewPassword: req.NewPassword,
		Meta:        deliverycontext.RequestMeta(c),
	}); err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, nil, "Password reset successful")
}

// ChangeEmail handles PUT /api/v1/:kind/email for an authenticated account.
func (h *AuthHandler) ChangeEmail(c echo.Context) error {
	identity, ok := deliverycontext.GetIdentity(c)
	if !ok {
		return domainerrors.ErrSessionMissing
	}

	var req ChangeEmailRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.authUC.ChangeEmail(c.Request().Context(), &usecase.ChangeEmailInput{
		Kind:             identity.Kind,
		AccountID:        identity.AccountID,
		NewEmail:         req.Email,
		CurrentPassword:  req.CurrentPassword,
		SessionID:        identity.SessionID,
		SessionExpiresAt: identity.SessionExpiresAt,
		Meta:             deliverycontext.RequestMeta(c),
	})
	if err != nil {
		return errors.WithStack(err)
	}

	h.jar.SetSession(c, output.Session)

	return response.Success(c, http.StatusOK, entity.NewVerifiedIdentity(output.Account, output.Session.ID), "Email updated successfully")
}

// Me handles GET /api/v1/:kind/me.
func (h *AuthHandler) Me(c echo.Context) error {
	identity, ok := deliverycontext.GetIdentity(c)
	if !ok {
		return domainerrors.ErrSessionMissing
	}

	return response.Success(c, http.StatusOK, identity, "")
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return errors.Wrap(domainerrors.ErrValidationFailed.WithDetails("malformed request body"), err.Error())
	}

	return errors.WithStack(c.Validate(req))
}
