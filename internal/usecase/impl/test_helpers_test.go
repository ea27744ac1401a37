package impl

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"sync"
	"testing"
	"time"

	"bidhub/config"
	"bidhub/internal/domain/repository"
	"bidhub/internal/domain/service"
	"bidhub/internal/infra/auth"
	"bidhub/internal/infra/cache"
	"bidhub/internal/infra/clock"
	"bidhub/internal/infra/persistence/memory"
	mockService "bidhub/internal/mocks/service"
	"bidhub/internal/usecase"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testEpoch = time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Env.Env = config.EnvDevelopment
	cfg.Session.Kinds.Company = config.SessionKindConfig{Secret: "company-secret-for-tests"}
	cfg.Session.Kinds.Worker = config.SessionKindConfig{Secret: "worker-secret-for-tests"}
	cfg.Session.Kinds.Admin = config.SessionKindConfig{Secret: "admin-secret-for-tests"}
	cfg.Accounts.RestrictedEmailWords = []string{"bidhub", "support"}
	config.ApplyDefaults(cfg)
	cfg.OTP.HashCost = bcrypt.MinCost
	cfg.Password.BcryptCost = bcrypt.MinCost
	cfg.OTP.DeliveryTimeout = 200 * time.Millisecond

	return cfg
}

var otpCodePattern = regexp.MustCompile(`<b>(\d+)</b>`)

// captureSender records every message and can be told to fail or stall.
type captureSender struct {
	mu       sync.Mutex
	messages []*service.Message
	err      error
	stall    bool
}

func (s *captureSender) Send(ctx context.Context, msg *service.Message) (*service.DeliveryReceipt, error) {
	if s.stall {
		<-ctx.Done()

		return nil, ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.messages = append(s.messages, msg)

	return &service.DeliveryReceipt{MessageID: "m", Provider: "capture", SentAt: testEpoch}, nil
}

func (s *captureSender) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.messages)
}

func (s *captureSender) last(t *testing.T) *service.Message {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.NotEmpty(t, s.messages, "no message sent")

	return s.messages[len(s.messages)-1]
}

// lastCode extracts the OTP from the most recent message.
func (s *captureSender) lastCode(t *testing.T) string {
	t.Helper()
	match := otpCodePattern.FindStringSubmatch(s.last(t).HTML)
	require.Len(t, match, 2, "no otp in message")

	return match[1]
}

func (s *captureSender) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

var errSMTPDown = errors.New("smtp: connection refused")

// authFixtures wires the orchestrator with real collaborators except the
// outbound edges, which are captured or mocked.
type authFixtures struct {
	cfg      *config.Config
	clock    *clock.Fake
	sender   *captureSender
	accounts *memory.AccountRepository
	sessions service.SessionTokenService
	revoker  *mockService.MockSessionRevoker
	events   *mockService.MockEventPublisher
	locker   service.IssueLocker
	otp      usecase.OTPUsecase
	devices  usecase.DeviceUsecase
	service  usecase.AuthUsecase
}

func createTestAuthService(t *testing.T) *authFixtures {
	t.Helper()

	cfg := newTestConfig()
	fakeClock := clock.NewFake(testEpoch)
	sender := &captureSender{}
	logger := newDiscardLogger()

	sessions, err := auth.NewJWTService(cfg, fakeClock)
	require.NoError(t, err)

	events := mockService.NewMockEventPublisher(t)
	events.EXPECT().PublishSecurityEvent(mock.Anything, mock.Anything).Return(nil).Maybe()

	otp := NewOTPService(OTPServiceParams{
		Hasher: auth.NewOTPHasher(cfg),
		Sender: sender,
		Clock:  fakeClock,
		Config: cfg,
		Logger: logger,
	})
	devices := NewDeviceService(DeviceServiceParams{
		Sender: sender,
		Clock:  fakeClock,
		Config: cfg,
		Logger: logger,
	})

	f := &authFixtures{
		cfg:      cfg,
		clock:    fakeClock,
		sender:   sender,
		accounts: memory.NewAccountRepository(),
		sessions: sessions,
		revoker:  mockService.NewMockSessionRevoker(t),
		events:   events,
		locker:   cache.NewMemoryLocker(),
		otp:      otp,
		devices:  devices,
	}
	f.service = f.newService(t, f.accounts)

	return f
}

// newService builds an orchestrator sharing the fixtures but backed by accounts.
func (f *authFixtures) newService(t *testing.T, accounts repository.AccountRepository) usecase.AuthUsecase {
	t.Helper()

	svc, err := NewAuthService(AuthServiceParams{
		Accounts: accounts,
		OTP:      f.otp,
		Devices:  f.devices,
		Hasher:   auth.NewPasswordHasher(f.cfg),
		Policy:   auth.NewPasswordPolicy(f.cfg),
		Sessions: f.sessions,
		Revoker:  f.revoker,
		Locker:   f.locker,
		Events:   f.events,
		Clock:    f.clock,
		Config:   f.cfg,
		Logger:   newDiscardLogger(),
	})
	require.NoError(t, err)

	return svc
}
