package auth

import (
	"testing"
	"time"

	"bidhub/internal/domain/entity"
	domainerrors "bidhub/internal/domain/errors"
	"bidhub/internal/errors"
	"bidhub/internal/infra/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_IssueAndVerify(t *testing.T) {
	fakeClock := clock.NewFake(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	sessions, err := NewJWTService(newTestConfig(), fakeClock)
	require.NoError(t, err)

	accountID := uuid.New()
	token, err := sessions.Issue(accountID, entity.KindCompany)
	require.NoError(t, err)
	assert.NotEmpty(t, token.Token)
	assert.NotEmpty(t, token.ID)
	assert.Equal(t, fakeClock.Now().Add(24*time.Hour), token.ExpiresAt)

	claims, err := sessions.Verify(token.Token, entity.KindCompany)
	require.NoError(t, err)
	assert.Equal(t, accountID, claims.AccountID)
	assert.Equal(t, entity.KindCompany, claims.Kind)
	assert.Equal(t, token.ID, claims.TokenID)
}

func TestJWTService_KindIsolation(t *testing.T) {
	sessions, err := NewJWTService(newTestConfig(), clock.New())
	require.NoError(t, err)

	workerToken, err := sessions.Issue(uuid.New(), entity.KindWorker)
	require.NoError(t, err)

	_, err = sessions.Verify(workerToken.Token, entity.KindCompany)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionInvalid))

	_, err = sessions.Verify(workerToken.Token, entity.KindAdmin)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionInvalid))

	_, err = sessions.Verify(workerToken.Token, entity.KindWorker)
	assert.NoError(t, err)
}

func TestJWTService_KindClaimMustMatchEvenWithSharedSecret(t *testing.T) {
	cfg := newTestConfig()
	cfg.Session.Kinds.Worker.Secret = cfg.Session.Kinds.Company.Secret

	sessions, err := NewJWTService(cfg, clock.New())
	require.NoError(t, err)

	workerToken, err := sessions.Issue(uuid.New(), entity.KindWorker)
	require.NoError(t, err)

	_, err = sessions.Verify(workerToken.Token, entity.KindCompany)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionInvalid))
}

func TestJWTService_Expired(t *testing.T) {
	fakeClock := clock.NewFake(time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC))
	sessions, err := NewJWTService(newTestConfig(), fakeClock)
	require.NoError(t, err)

	token, err := sessions.Issue(uuid.New(), entity.KindWorker)
	require.NoError(t, err)

	fakeClock.Advance(24*time.Hour + time.Second)

	_, err = sessions.Verify(token.Token, entity.KindWorker)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionExpired))
}

func TestJWTService_InvalidToken(t *testing.T) {
	sessions, err := NewJWTService(newTestConfig(), clock.New())
	require.NoError(t, err)

	claims, err := sessions.Verify("clearly-not-a-jwt-token-format", entity.KindCompany)
	assert.Nil(t, claims)
	assert.True(t, errors.Is(err, domainerrors.ErrSessionInvalid))
}

func TestJWTService_RequiresEverySecret(t *testing.T) {
	cfg := newTestConfig()
	cfg.Session.Kinds.Admin.Secret = ""

	_, err := NewJWTService(cfg, clock.New())
	assert.Error(t, err)
}

func TestJWTService_TTL(t *testing.T) {
	sessions, err := NewJWTService(newTestConfig(), clock.New())
	require.NoError(t, err)

	assert.Equal(t, time.Hour, sessions.TTL(entity.KindAdmin))
	assert.Equal(t, 24*time.Hour, sessions.TTL(entity.KindWorker))
}
