// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
	"strings"

	"bidhub/config"
	deliverycontext "bidhub/internal/delivery/context"
	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/domain/repository"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"
	"bidhub/internal/usecase"

	"github.com/google/uuid"
	"go.uber.org/fx"
)

// authService implements the AuthUsecase interface for every registrable kind.
type authService struct {
	accounts repository.AccountRepository
	otp      usecase.OTPUsecase
	devices  usecase.DeviceUsecase
	hasher   service.PasswordHasher
	policy   service.PasswordPolicy
	sessions service.SessionTokenService
	revoker  service.SessionRevoker
	locker   service.IssueLocker
	events   service.EventPublisher
	clock    service.Clock
	identity *accountPolicy
	password config.PasswordConfig
	logger   *slog.Logger
}

// AuthServiceParams holds dependencies for AuthService, injected by Fx.
type AuthServiceParams struct {
	fx.In

	Accounts repository.AccountRepository
	OTP      usecase.OTPUsecase
	Devices  usecase.DeviceUsecase
	Hasher   service.PasswordHasher `name:"passwordHasher"`
	Policy   service.PasswordPolicy
	Sessions service.SessionTokenService
	Revoker  service.SessionRevoker
	Locker   service.IssueLocker
	Events   service.EventPublisher
	Clock    service.Clock
	Config   *config.Config
	Logger   *slog.Logger
}

// NewAuthService is the constructor for authService. It receives all dependencies as interfaces.
func NewAuthService(params AuthServiceParams) (usecase.AuthUsecase, error) {
	identity, err := newAccountPolicy(params.Config.Accounts)
	if err != nil {
		return nil, err
	}

	return &authService{
		accounts: params.Accounts,
		otp:      params.OTP,
		devices:  params.Devices,
		hasher:   params.Hasher,
		policy:   params.Policy,
		sessions: params.Sessions,
		revoker:  params.Revoker,
		locker:   params.Locker,
		events:   params.Events,
		clock:    params.Clock,
		identity: identity,
		password: params.Config.Password,
		logger:   params.Logger,
	}, nil
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *authService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates a pending account, or refreshes an unverified one, and issues its OTP.
func (srv *authService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.RegisterOutput, error) {
	if !input.Kind.IsRegistrable() {
		return nil, errors.Wrapf(domainerrors.ErrInvalidAccountKind, "register %q", input.Kind)
	}

	email, err := srv.identity.normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	handle, err := srv.identity.normalizeHandle(input.Handle)
	if err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		return nil, errors.Wrap(domainerrors.ErrValidationFailed.WithDetails(input.Kind.DisplayNameField()+" is required"), "missing display name")
	}
	if err := srv.policy.Validate(input.Password); err != nil {
		return nil, err
	}

	srv.log(ctx).Info("Starting registration", slog.String("kind", input.Kind.String()), slog.String("email", email))

	unlock, err := srv.lockIssuance(ctx, input.Kind, email)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := srv.accounts.FindByEmail(ctx, input.Kind, email)
	isNew := errors.Is(err, repository.ErrAccountNotFound)
	switch {
	case isNew:
	case err != nil:
		return nil, srv.storeError(ctx, "find account by email", err)
	case account.IsVerified:
		return nil, errors.Wrap(domainerrors.ErrAccountAlreadyExists, "account already verified")
	}

	if err := srv.ensureHandleAvailable(ctx, input.Kind, handle, account); err != nil {
		return nil, err
	}

	passwordHash, err := srv.hasher.Hash(input.Password)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	now := srv.clock.Now()
	if isNew {
		account = &entity.Account{
			ID:        uuid.New(),
			Kind:      input.Kind,
			Email:     email,
			CreatedAt: now,
		}
	}
	account.Handle = handle
	account.DisplayName = displayName
	account.PasswordHash = passwordHash
	account.PasswordExpiresAt = now.Add(srv.password.Expiry)
	account.UpdatedAt = now

	issued, err := srv.otp.Issue(ctx, account, entity.OTPPurposeRegister)
	if err != nil {
		return nil, err
	}

	if isNew {
		err = srv.accounts.Create(ctx, account)
	} else {
		err = srv.accounts.Save(ctx, account)
	}
	if err != nil {
		return nil, srv.storeError(ctx, "persist registration", err)
	}

	srv.publish(ctx, entity.EventAccountRegistered, account, input.Meta, "")
	srv.log(ctx).Debug("Registration completed", slog.Any("accountID", account.ID), slog.Bool("newAccount", isNew))

	return &usecase.RegisterOutput{Account: account, OTPExpiresAt: issued.ExpiresAt}, nil
}

// VerifyEmail confirms the registration OTP, marks the account verified and opens a session.
func (srv *authService) VerifyEmail(ctx context.Context, input *usecase.VerifyEmailInput) (*usecase.SessionOutput, error) {
	account, err := srv.findByEmail(ctx, input.Kind, input.Email)
	if err != nil {
		return nil, err
	}
	if account.IsVerified {
		return nil, errors.Wrap(domainerrors.ErrAccountAlreadyVerified, "verify email")
	}

	now := srv.clock.Now()
	if err := srv.otp.Verify(ctx, account, entity.OTPPurposeRegister, strings.TrimSpace(input.Code)); err != nil {
		if errors.Is(err, domainerrors.ErrOTPInvalid) {
			// The failed attempt counter must survive the rejected request.
			account.UpdatedAt = now
			if saveErr := srv.accounts.Save(ctx, account); saveErr != nil {
				return nil, srv.storeError(ctx, "record failed otp attempt", saveErr)
			}
		}

		return nil, err
	}

	account.MarkVerified(now)
	account.ResetCounter(entity.OTPPurposeRegister)
	deviceID := srv.devices.Fingerprint(input.Meta)
	srv.devices.RecordDevice(account, deviceID, input.Meta)
	account.UpdatedAt = now

	if err := srv.accounts.Save(ctx, account); err != nil {
		return nil, srv.storeError(ctx, "save verified account", err)
	}

	session, err := srv.issueSession(account)
	if err != nil {
		return nil, err
	}

	srv.publish(ctx, entity.EventAccountVerified, account, input.Meta, deviceID)
	srv.log(ctx).Info("Account verified", slog.Any("accountID", account.ID), slog.String("kind", account.Kind.String()))

	return &usecase.SessionOutput{Account: account, Session: session}, nil
}

// ResendOTP issues another registration OTP for a pending account.
func (srv *authService) ResendOTP(ctx context.Context, input *usecase.ResendOTPInput) (*usecase.OTPOutput, error) {
	return srv.issueFor(ctx, input.Kind, input.Email, entity.OTPPurposeRegister)
}

// ForgotPassword issues a forgot-purpose OTP. Unknown emails are rejected.
func (srv *authService) ForgotPassword(ctx context.Context, input *usecase.ForgotPasswordInput) (*usecase.OTPOutput, error) {
	return srv.issueFor(ctx, input.Kind, input.Email, entity.OTPPurposeForgot)
}

func (srv *authService) issueFor(ctx context.Context, kind entity.AccountKind, rawEmail string, purpose entity.OTPPurpose) (*usecase.OTPOutput, error) {
	email, err := srv.identity.normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	unlock, err := srv.lockIssuance(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	defer unlock()

	account, err := srv.findByEmail(ctx, kind, email)
	if err != nil {
		return nil, err
	}
	if purpose == entity.OTPPurposeRegister && account.IsVerified {
		return nil, errors.Wrap(domainerrors.ErrAccountAlreadyVerified, "resend otp")
	}

	issued, err := srv.otp.Issue(ctx, account, purpose)
	if err != nil {
		return nil, err
	}

	account.UpdatedAt = srv.clock.Now()
	if err := srv.accounts.Save(ctx, account); err != nil {
		return nil, srv.storeError(ctx, "save issued otp", err)
	}

	return &usecase.OTPOutput{Email: account.Email, ExpiresAt: issued.ExpiresAt}, nil
}

// ResetPassword replaces the password of a verified account after a forgot-purpose OTP match.
func (srv *authService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	if err := srv.policy.Validate(input.NewPassword); err != nil {
		return err
	}

	account, err := srv.findByEmail(ctx, input.Kind, input.Email)
	if err != nil {
		return err
	}
	if !account.IsVerified {
		return errors.Wrap(domainerrors.ErrAccountNotVerified, "reset password")
	}

	if err := srv.otp.Verify(ctx, account, entity.OTPPurposeForgot, strings.TrimSpace(input.Code)); err != nil {
		return err
	}

	passwordHash, err := srv.hasher.Hash(input.NewPassword)
	if err != nil {
		return errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	now := srv.clock.Now()
	account.PasswordHash = passwordHash
	account.PasswordExpiresAt = now.Add(srv.password.Expiry)
	account.ResetCounter(entity.OTPPurposeForgot)
	deviceID := srv.devices.Fingerprint(input.Meta)
	newDevice := srv.devices.RecordDevice(account, deviceID, input.Meta)
	account.UpdatedAt = now

	if err := srv.accounts.Save(ctx, account); err != nil {
		return srv.storeError(ctx, "save reset password", err)
	}

	if newDevice {
		srv.devices.NotifyNewDevice(ctx, account.Email, input.Meta, usecase.AlertPasswordReset)
		srv.publish(ctx, entity.EventNewDevice, account, input.Meta, deviceID)
	}
	srv.publish(ctx, entity.EventPasswordReset, account, input.Meta, deviceID)
	srv.log(ctx).Info("Password reset", slog.Any("accountID", account.ID))

	return nil
}

// Login verifies credentials, tracks the device and opens a session.
func (srv *authService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.SessionOutput, error) {
	account, err := srv.findByEmail(ctx, input.Kind, input.Email)
	if err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", input.Email), slog.Any("error", err))

		return nil, err
	}
	if !account.IsVerified {
		return nil, errors.Wrap(domainerrors.ErrAccountNotVerified, "login")
	}

	now := srv.clock.Now()
	if account.IsPasswordExpired(now) {
		return nil, errors.Wrap(domainerrors.ErrPasswordExpired, "login")
	}
	if !srv.hasher.Check(input.Password, account.PasswordHash) {
		srv.log(ctx).Warn("Login failed", slog.Any("accountID", account.ID), slog.String("reason", "password mismatch"))

		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
	}

	deviceID := srv.devices.Fingerprint(input.Meta)
	newDevice := srv.devices.RecordDevice(account, deviceID, input.Meta)
	account.LastLogin = &now
	account.UpdatedAt = now

	if err := srv.accounts.Save(ctx, account); err != nil {
		return nil, srv.storeError(ctx, "save login", err)
	}

	if newDevice {
		srv.devices.NotifyNewDevice(ctx, account.Email, input.Meta, usecase.AlertLogin)
		srv.publish(ctx, entity.EventNewDevice, account, input.Meta, deviceID)
	}

	session, err := srv.issueSession(account)
	if err != nil {
		return nil, err
	}

	srv.publish(ctx, entity.EventLoginSucceeded, account, input.Meta, deviceID)
	srv.log(ctx).Info("Login succeeded", slog.Any("accountID", account.ID), slog.Bool("newDevice", newDevice))

	return &usecase.SessionOutput{Account: account, Session: session, NewDevice: newDevice}, nil
}

// Logout revokes the session when a revocation store is configured. It never fails:
// the caller clears the cookie regardless.
func (srv *authService) Logout(ctx context.Context, input *usecase.LogoutInput) error {
	if input.Token == "" {
		return nil
	}

	claims, err := srv.sessions.Verify(input.Token, input.Kind)
	if err != nil {
		srv.log(ctx).Debug("Logout with unusable session", slog.Any("error", err))

		return nil
	}

	if err := srv.revoker.Revoke(ctx, claims.TokenID, claims.ExpiresAt); err != nil {
		srv.log(ctx).Warn("Failed to revoke session", slog.Any("accountID", claims.AccountID), slog.Any("error", err))
	}

	srv.publish(ctx, entity.EventLoggedOut, &entity.Account{ID: claims.AccountID, Kind: claims.Kind}, input.Meta, "")

	return nil
}

// ChangeEmail moves an authenticated account to a new email after re-checking its password.
func (srv *authService) ChangeEmail(ctx context.Context, input *usecase.ChangeEmailInput) (*usecase.SessionOutput, error) {
	newEmail, err := srv.identity.normalizeEmail(input.NewEmail)
	if err != nil {
		return nil, err
	}

	account, err := srv.accounts.FindByID(ctx, input.Kind, input.AccountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "change email")
	}
	if err != nil {
		return nil, srv.storeError(ctx, "find account by id", err)
	}

	if !srv.hasher.Check(input.CurrentPassword, account.PasswordHash) {
		return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "change email")
	}

	if newEmail != account.Email {
		existing, err := srv.accounts.FindByEmail(ctx, input.Kind, newEmail)
		switch {
		case errors.Is(err, repository.ErrAccountNotFound):
		case err != nil:
			return nil, srv.storeError(ctx, "find account by email", err)
		case existing.ID != account.ID:
			return nil, errors.Wrap(domainerrors.ErrAccountAlreadyExists, "change email")
		}
	}

	now := srv.clock.Now()
	previousEmail := account.Email
	deviceID := srv.devices.Fingerprint(input.Meta)
	newDevice := srv.devices.RecordDevice(account, deviceID, input.Meta)
	account.Email = newEmail
	account.LastLogin = &now
	account.UpdatedAt = now

	if err := srv.accounts.Save(ctx, account); err != nil {
		return nil, srv.storeError(ctx, "save email change", err)
	}

	if newDevice {
		srv.devices.NotifyNewDevice(ctx, previousEmail, input.Meta, usecase.AlertEmailChange)
		srv.publish(ctx, entity.EventNewDevice, account, input.Meta, deviceID)
	}

	session, err := srv.issueSession(account)
	if err != nil {
		return nil, err
	}

	if input.SessionID != "" {
		expiresAt := input.SessionExpiresAt
		if expiresAt.IsZero() {
			expiresAt = now.Add(srv.sessions.TTL(account.Kind))
		}
		if err := srv.revoker.Revoke(ctx, input.SessionID, expiresAt); err != nil {
			srv.log(ctx).Warn("Failed to revoke previous session", slog.Any("accountID", account.ID), slog.Any("error", err))
		}
	}

	srv.publish(ctx, entity.EventEmailChanged, account, input.Meta, deviceID)

	return &usecase.SessionOutput{Account: account, Session: session, NewDevice: newDevice}, nil
}

// Authenticate resolves a session cookie into a verified identity.
func (srv *authService) Authenticate(ctx context.Context, kind entity.AccountKind, token string) (*entity.VerifiedIdentity, error) {
	if token == "" {
		return nil, domainerrors.ErrSessionMissing
	}

	claims, err := srv.sessions.Verify(token, kind)
	if err != nil {
		return nil, err
	}

	revoked, err := srv.revoker.IsRevoked(ctx, claims.TokenID)
	if err != nil {
		srv.log(ctx).Error("Failed to check session revocation", slog.Any("error", err))

		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}
	if revoked {
		return nil, errors.Wrap(domainerrors.ErrSessionInvalid, "session revoked")
	}

	account, err := srv.accounts.FindByID(ctx, kind, claims.AccountID)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrSessionInvalid, "account not found")
	}
	if err != nil {
		return nil, srv.storeError(ctx, "find session account", err)
	}
	if !account.IsVerified {
		return nil, errors.Wrap(domainerrors.ErrAccountNotVerified, "authenticate")
	}

	identity := entity.NewVerifiedIdentity(account, claims.TokenID)
	identity.SessionExpiresAt = claims.ExpiresAt

	return identity, nil
}

func (srv *authService) findByEmail(ctx context.Context, kind entity.AccountKind, rawEmail string) (*entity.Account, error) {
	if !kind.IsRegistrable() {
		return nil, errors.Wrapf(domainerrors.ErrInvalidAccountKind, "%q", kind)
	}

	email, err := srv.identity.normalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	account, err := srv.accounts.FindByEmail(ctx, kind, email)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil, errors.Wrap(domainerrors.ErrAccountNotFound, "find account by email")
	}
	if err != nil {
		return nil, srv.storeError(ctx, "find account by email", err)
	}

	return account, nil
}

func (srv *authService) ensureHandleAvailable(ctx context.Context, kind entity.AccountKind, handle string, owner *entity.Account) error {
	existing, err := srv.accounts.FindByHandle(ctx, kind, handle)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return nil
	}
	if err != nil {
		return srv.storeError(ctx, "find account by handle", err)
	}
	if owner != nil && existing.ID == owner.ID {
		return nil
	}

	return errors.Wrapf(domainerrors.ErrHandleTaken, "handle %q", handle)
}

// lockIssuance serializes OTP issuance for one account. A lock backend
// outage degrades to unserialized issuance rather than blocking the flow.
func (srv *authService) lockIssuance(ctx context.Context, kind entity.AccountKind, email string) (func(), error) {
	key := "otp-issue:" + kind.String() + ":" + email

	unlock, err := srv.locker.Acquire(ctx, key)
	if errors.Is(err, service.ErrLockNotAcquired) {
		return nil, errors.Wrap(domainerrors.ErrOTPIssueInProgress, key)
	}
	if err != nil {
		srv.log(ctx).Warn("Issuance lock unavailable", slog.String("key", key), slog.Any("error", err))

		return func() {}, nil
	}

	return func() {
		// Release with a fresh context: the request context may already be cancelled.
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			srv.log(ctx).Warn("Failed to release issuance lock", slog.String("key", key), slog.Any("error", err))
		}
	}, nil
}

func (srv *authService) issueSession(account *entity.Account) (*entity.SessionToken, error) {
	session, err := srv.sessions.Issue(account.ID, account.Kind)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	return session, nil
}

// storeError maps Account Store failures onto the error taxonomy.
func (srv *authService) storeError(ctx context.Context, operation string, err error) error {
	switch {
	case errors.Is(err, repository.ErrDuplicateEmail):
		return errors.Wrap(domainerrors.ErrAccountAlreadyExists, operation)
	case errors.Is(err, repository.ErrDuplicateHandle):
		return errors.Wrap(domainerrors.ErrHandleTaken, operation)
	}

	srv.log(ctx).Error("Account store failure", slog.String("operation", operation), slog.Any("error", err))

	return errors.Wrap(domainerrors.NewDatabaseExecuteError(err, operation), operation)
}

func (srv *authService) publish(ctx context.Context, eventType entity.SecurityEventType, account *entity.Account, meta entity.RequestMeta, deviceID string) {
	event := &entity.SecurityEvent{
		ID:         uuid.NewString(),
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		Type:       eventType,
		AccountID:  account.ID,
		Kind:       account.Kind,
		DeviceID:   deviceID,
		SourceIP:   meta.IP,
		UserAgent:  meta.UserAgent,
		OccurredAt: srv.clock.Now(),
	}

	if err := srv.events.PublishSecurityEvent(ctx, event); err != nil {
		srv.log(ctx).Warn("Failed to publish security event", slog.String("type", string(eventType)), slog.Any("error", err))
	}
}
