package impl

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"bidhub/config"
	deliverycontext "bidhub/internal/delivery/context"
	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"
	"bidhub/internal/usecase"

	"go.uber.org/fx"
)

type otpService struct {
	hasher service.PasswordHasher
	sender service.NotificationSender
	clock  service.Clock
	cfg    config.OTPConfig
	logger *slog.Logger
}

// OTPServiceParams holds dependencies for OTPService, injected by Fx.
type OTPServiceParams struct {
	fx.In

	Hasher service.PasswordHasher `name:"otpHasher"`
	Sender service.NotificationSender
	Clock  service.Clock
	Config *config.Config
	Logger *slog.Logger
}

// NewOTPService creates the OTP engine.
func NewOTPService(params OTPServiceParams) usecase.OTPUsecase {
	return &otpService{
		hasher: params.Hasher,
		sender: params.Sender,
		clock:  params.Clock,
		cfg:    params.Config.OTP,
		logger: params.Logger,
	}
}

func (s *otpService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, s.logger)
}

func (s *otpService) ceiling(purpose entity.OTPPurpose) int {
	if purpose == entity.OTPPurposeForgot {
		return s.cfg.ForgotMaxAttempts
	}

	return s.cfg.RegisterMaxAttempts
}

// Issue delivers a fresh code and, only once delivery succeeded, stores its
// hash and advances the purpose counter.
func (s *otpService) Issue(ctx context.Context, account *entity.Account, purpose entity.OTPPurpose) (*usecase.OTPIssueResult, error) {
	if !purpose.IsValid() {
		return nil, errors.Wrapf(domainerrors.ErrValidationFailed, "unknown otp purpose %q", purpose)
	}

	now := s.clock.Now()
	counter := account.Counter(purpose)
	ceiling := s.ceiling(purpose)
	if counter.IsLocked(ceiling, now) {
		s.log(ctx).Warn("OTP issuance locked out",
			slog.String("purpose", purpose.String()),
			slog.Any("accountID", account.ID),
			slog.Time("lockoutUntil", counter.LockoutUntil))

		return nil, errors.Wrapf(domainerrors.ErrOTPLockedOut, "%s otp locked until %s", purpose, counter.LockoutUntil.Format(time.RFC3339))
	}

	code, err := generateNumericCode(s.cfg.Length)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrPasswordHashFailed, err.Error())
	}

	receipt, err := s.deliver(ctx, account.Email, purpose, code)
	if err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.cfg.TTL)
	account.OTP = &entity.OTPChallenge{
		CodeHash:  codeHash,
		Purpose:   purpose,
		ExpiresAt: expiresAt,
	}
	counter.Count++

	result := &usecase.OTPIssueResult{
		ExpiresAt: expiresAt,
		Attempts:  counter.Count,
		Remaining: max(ceiling-counter.Count, 0),
		Receipt:   receipt,
	}
	if counter.Count >= ceiling {
		counter.LockoutUntil = now.Add(s.cfg.LockoutWindow)
		lockoutUntil := counter.LockoutUntil
		result.LockoutUntil = &lockoutUntil
	}

	s.log(ctx).Info("OTP issued",
		slog.String("purpose", purpose.String()),
		slog.Any("accountID", account.ID),
		slog.Int("attempts", counter.Count))

	return result, nil
}

type sendResult struct {
	receipt *service.DeliveryReceipt
	err     error
}

// deliver races the sender against the delivery timeout.
func (s *otpService) deliver(ctx context.Context, to string, purpose entity.OTPPurpose, code string) (*service.DeliveryReceipt, error) {
	subject, html, err := renderOTPMail(purpose, code, s.cfg.TTL)
	if err != nil {
		return nil, errors.Wrap(domainerrors.ErrInternalError, err.Error())
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.DeliveryTimeout)
	defer cancel()

	done := make(chan sendResult, 1)
	go func() {
		receipt, err := s.sender.Send(sendCtx, &service.Message{To: to, Subject: subject, HTML: html})
		done <- sendResult{receipt: receipt, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			s.log(ctx).Error("OTP delivery failed", slog.String("purpose", purpose.String()), slog.Any("error", res.err))

			return nil, errors.Wrap(domainerrors.ErrOTPDeliveryFailed, res.err.Error())
		}

		return res.receipt, nil
	case <-sendCtx.Done():
		s.log(ctx).Error("OTP delivery timed out", slog.String("purpose", purpose.String()), slog.Duration("timeout", s.cfg.DeliveryTimeout))

		return nil, errors.Wrap(domainerrors.ErrOTPDeliveryFailed, "delivery timed out")
	}
}

// Verify fails closed on a missing challenge, exhausted attempts, expiry or mismatch.
func (s *otpService) Verify(ctx context.Context, account *entity.Account, purpose entity.OTPPurpose, code string) error {
	challenge := account.OTP
	if challenge == nil || challenge.Purpose != purpose {
		return errors.Wrapf(domainerrors.ErrOTPNotIssued, "no %s otp in flight", purpose)
	}

	if purpose == entity.OTPPurposeRegister && account.FailedOTPAttempts >= s.cfg.MaxFailedAttempts {
		return errors.Wrapf(domainerrors.ErrOTPAttemptsExceeded, "%d failed attempts", account.FailedOTPAttempts)
	}

	if challenge.IsExpired(s.clock.Now()) {
		return errors.Wrapf(domainerrors.ErrOTPExpired, "%s otp expired at %s", purpose, challenge.ExpiresAt.Format(time.RFC3339))
	}

	if !s.hasher.Check(code, challenge.CodeHash) {
		if purpose == entity.OTPPurposeRegister {
			account.FailedOTPAttempts++
		}
		s.log(ctx).Warn("OTP mismatch",
			slog.String("purpose", purpose.String()),
			slog.Any("accountID", account.ID),
			slog.Int("failedAttempts", account.FailedOTPAttempts))

		return errors.Wrap(domainerrors.ErrOTPInvalid, "otp mismatch")
	}

	account.ClearOTP()
	if purpose == entity.OTPPurposeRegister {
		account.FailedOTPAttempts = 0
	}

	return nil
}

// generateNumericCode returns a zero-padded code of the given number of digits.
func generateNumericCode(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, upper)
	if err != nil {
		return "", errors.Wrap(err, "generate otp")
	}

	return fmt.Sprintf("%0*d", digits, n), nil
}
