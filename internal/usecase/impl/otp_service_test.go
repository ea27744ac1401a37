package impl

import (
	"context"
	"testing"
	"time"

	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/infra/auth"
	"bidhub/internal/infra/clock"
	"bidhub/internal/usecase"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type otpFixtures struct {
	service usecase.OTPUsecase
	sender  *captureSender
	clock   *clock.Fake
}

func createTestOTPService(t *testing.T) otpFixtures {
	t.Helper()

	cfg := newTestConfig()
	sender := &captureSender{}
	fakeClock := clock.NewFake(testEpoch)

	return otpFixtures{
		service: NewOTPService(OTPServiceParams{
			Hasher: auth.NewOTPHasher(cfg),
			Sender: sender,
			Clock:  fakeClock,
			Config: cfg,
			Logger: newDiscardLogger(),
		}),
		sender: sender,
		clock:  fakeClock,
	}
}

func newPendingAccount() *entity.Account {
	return &entity.Account{
		ID:    uuid.New(),
		Kind:  entity.KindCompany,
		Email: "acme@example.com",
	}
}

func TestOTPService_Issue(t *testing.T) {
	fx := createTestOTPService(t)
	account := newPendingAccount()

	result, err := fx.service.Issue(context.Background(), account, entity.OTPPurposeRegister)
	require.NoError(t, err)

	require.NotNil(t, account.OTP)
	assert.Equal(t, entity.OTPPurposeRegister, account.OTP.Purpose)
	assert.Equal(t, testEpoch.Add(10*time.Minute), account.OTP.ExpiresAt)
	assert.Equal(t, 1, account.RegisterOTP.Count)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 4, result.Remaining)
	assert.Nil(t, result.LockoutUntil)

	msg := fx.sender.last(t)
	assert.Equal(t, "acme@example.com", msg.To)
	assert.Equal(t, "Verify your email", msg.Subject)
	code := fx.sender.lastCode(t)
	assert.Len(t, code, 6)
	assert.NotContains(t, account.OTP.CodeHash, code, "only the hash is stored")
}

func TestOTPService_Issue_LocksOutAtCeiling(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	for i := 1; i <= 5; i++ {
		result, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
		require.NoError(t, err, "issue %d", i)
		if i == 5 {
			require.NotNil(t, result.LockoutUntil)
			assert.Equal(t, testEpoch.Add(time.Hour), *result.LockoutUntil)
		}
	}

	before := *account.OTP
	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.ErrorIs(t, err, domainerrors.ErrOTPLockedOut)
	assert.Equal(t, 5, account.RegisterOTP.Count)
	assert.Equal(t, before, *account.OTP, "a locked out request leaves the challenge alone")
	assert.Equal(t, 5, fx.sender.count())

	// Still locked one second before the window ends.
	fx.clock.Advance(time.Hour - time.Second)
	_, err = fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.ErrorIs(t, err, domainerrors.ErrOTPLockedOut)

	// Once the window elapsed a single issuance goes through and re-arms the lockout.
	fx.clock.Advance(2 * time.Second)
	result, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.NoError(t, err)
	assert.Equal(t, 6, account.RegisterOTP.Count)
	require.NotNil(t, result.LockoutUntil)

	_, err = fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.ErrorIs(t, err, domainerrors.ErrOTPLockedOut)
}

func TestOTPService_Issue_PurposesCountSeparately(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	for range 4 {
		_, err := fx.service.Issue(ctx, account, entity.OTPPurposeForgot)
		require.NoError(t, err)
	}
	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeForgot)
	require.ErrorIs(t, err, domainerrors.ErrOTPLockedOut)
	assert.Equal(t, "Password Reset OTP", fx.sender.last(t).Subject)

	_, err = fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.NoError(t, err)
	assert.Equal(t, entity.OTPPurposeRegister, account.OTP.Purpose, "a new issuance replaces the in-flight challenge")
}

func TestOTPService_Issue_DeliveryFailureLeavesAccountUntouched(t *testing.T) {
	fx := createTestOTPService(t)
	account := newPendingAccount()
	fx.sender.fail(errSMTPDown)

	_, err := fx.service.Issue(context.Background(), account, entity.OTPPurposeRegister)
	require.ErrorIs(t, err, domainerrors.ErrOTPDeliveryFailed)
	assert.Nil(t, account.OTP)
	assert.Zero(t, account.RegisterOTP.Count)
}

func TestOTPService_Issue_DeliveryTimeout(t *testing.T) {
	fx := createTestOTPService(t)
	account := newPendingAccount()
	fx.sender.stall = true

	start := time.Now()
	_, err := fx.service.Issue(context.Background(), account, entity.OTPPurposeRegister)
	require.ErrorIs(t, err, domainerrors.ErrOTPDeliveryFailed)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Nil(t, account.OTP)
	assert.Zero(t, account.RegisterOTP.Count)
}

func TestOTPService_Verify(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.NoError(t, err)
	code := fx.sender.lastCode(t)

	require.NoError(t, fx.service.Verify(ctx, account, entity.OTPPurposeRegister, code))
	assert.Nil(t, account.OTP)

	err = fx.service.Verify(ctx, account, entity.OTPPurposeRegister, code)
	require.ErrorIs(t, err, domainerrors.ErrOTPNotIssued, "a code is single use")
}

func TestOTPService_Verify_Expiry(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.NoError(t, err)
	code := fx.sender.lastCode(t)

	fx.clock.Advance(10*time.Minute + time.Second)
	err = fx.service.Verify(ctx, account, entity.OTPPurposeRegister, code)
	require.ErrorIs(t, err, domainerrors.ErrOTPExpired)
	assert.NotNil(t, account.OTP)
}

func TestOTPService_Verify_ValidAtExactExpiry(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.NoError(t, err)

	fx.clock.Advance(10 * time.Minute)
	require.NoError(t, fx.service.Verify(ctx, account, entity.OTPPurposeRegister, fx.sender.lastCode(t)))
}

func TestOTPService_Verify_WrongPurpose(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	err := fx.service.Verify(ctx, account, entity.OTPPurposeRegister, "123456")
	require.ErrorIs(t, err, domainerrors.ErrOTPNotIssued)

	_, err = fx.service.Issue(ctx, account, entity.OTPPurposeForgot)
	require.NoError(t, err)

	err = fx.service.Verify(ctx, account, entity.OTPPurposeRegister, fx.sender.lastCode(t))
	require.ErrorIs(t, err, domainerrors.ErrOTPNotIssued)
}

func TestOTPService_Verify_FailedAttemptCeiling(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeRegister)
	require.NoError(t, err)
	code := fx.sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 1; i <= 5; i++ {
		err := fx.service.Verify(ctx, account, entity.OTPPurposeRegister, wrong)
		require.ErrorIs(t, err, domainerrors.ErrOTPInvalid)
		assert.Equal(t, i, account.FailedOTPAttempts)
	}

	err = fx.service.Verify(ctx, account, entity.OTPPurposeRegister, code)
	require.ErrorIs(t, err, domainerrors.ErrOTPAttemptsExceeded)
	var appErr domainerrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, domainerrors.KindLockedOut, appErr.Kind())
}

func TestOTPService_Verify_ForgotMismatchIsNotCounted(t *testing.T) {
	fx := createTestOTPService(t)
	ctx := context.Background()
	account := newPendingAccount()

	_, err := fx.service.Issue(ctx, account, entity.OTPPurposeForgot)
	require.NoError(t, err)
	code := fx.sender.lastCode(t)
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for range 6 {
		require.ErrorIs(t, fx.service.Verify(ctx, account, entity.OTPPurposeForgot, wrong), domainerrors.ErrOTPInvalid)
	}
	assert.Zero(t, account.FailedOTPAttempts)
	require.NoError(t, fx.service.Verify(ctx, account, entity.OTPPurposeForgot, code))
}

func TestGenerateNumericCode(t *testing.T) {
	for range 50 {
		code, err := generateNumericCode(6)
		require.NoError(t, err)
		assert.Regexp(t, `^\d{6}$`, code)
	}

	code, err := generateNumericCode(0)
	require.NoError(t, err)
	assert.Len(t, code, 6)
}
