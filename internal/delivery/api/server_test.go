package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"bidhub/config"
	apimiddleware "bidhub/internal/delivery/api/middleware"
	"bidhub/internal/delivery/api/cookie"
	"bidhub/internal/delivery/api/router"
	"bidhub/internal/delivery/api/router/handler"
	"bidhub/internal/domain/service"
	"bidhub/internal/infra/auth"
	"bidhub/internal/infra/cache"
	"bidhub/internal/infra/clock"
	"bidhub/internal/infra/persistence/memory"
	mockService "bidhub/internal/mocks/service"
	"bidhub/internal/usecase/impl"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var codePattern = regexp.MustCompile(`<b>(\d+)</b>`)

type inbox struct {
	mu       sync.Mutex
	messages []*service.Message
}

func (i *inbox) Send(_ context.Context, msg *service.Message) (*service.DeliveryReceipt, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.messages = append(i.messages, msg)

	return &service.DeliveryReceipt{MessageID: "m", Provider: "inbox"}, nil
}

func (i *inbox) lastCode(t *testing.T) string {
	t.Helper()
	i.mu.Lock()
	defer i.mu.Unlock()
	require.NotEmpty(t, i.messages)
	match := codePattern.FindStringSubmatch(i.messages[len(i.messages)-1].HTML)
	require.Len(t, match, 2)

	return match[1]
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Kind    string `json:"kind"`
		Details any    `json:"details"`
	} `json:"error"`
	Meta struct {
		RequestID string `json:"request_id"`
	} `json:"meta"`
}

// client keeps cookies between calls and echoes the CSRF token.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
	csrf    string
}

func (cl *client) do(method, path, body string) (*httptest.ResponseRecorder, envelope) {
	cl.t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("User-Agent", "api-test")
	if cl.csrf != "" {
		req.Header.Set("X-CSRF-Token", cl.csrf)
	}
	for _, c := range cl.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	cl.handler.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(cl.cookies, c.Name)

			continue
		}
		cl.cookies[c.Name] = c
	}

	var env envelope
	require.NoError(cl.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())

	return rec, env
}

func (cl *client) fetchCSRF() {
	cl.t.Helper()
	rec, env := cl.do(http.MethodGet, "/api/v1/csrf-token", "")
	require.Equal(cl.t, http.StatusOK, rec.Code)

	var data struct {
		CSRFToken string `json:"csrfToken"`
	}
	require.NoError(cl.t, json.Unmarshal(env.Data, &data))
	require.NotEmpty(cl.t, data.CSRFToken)
	cl.csrf = data.CSRFToken
}

func newTestServer(t *testing.T) (*client, *inbox) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Env.Env = config.EnvDevelopment
	cfg.Env.ServiceName = "bidhub-test"
	cfg.Session.Kinds.Company = config.SessionKindConfig{Secret: "company-secret"}
	cfg.Session.Kinds.Worker = config.SessionKindConfig{Secret: "worker-secret"}
	cfg.Session.Kinds.Admin = config.SessionKindConfig{Secret: "admin-secret"}
	config.ApplyDefaults(cfg)
	cfg.OTP.HashCost = bcrypt.MinCost
	cfg.Password.BcryptCost = bcrypt.MinCost

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	systemClock := clock.New()
	mail := &inbox{}

	sessions, err := auth.NewJWTService(cfg, systemClock)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	events := mockService.NewMockEventPublisher(t)
	events.EXPECT().PublishSecurityEvent(mock.Anything, mock.Anything).Return(nil).Maybe()

	otp := impl.NewOTPService(impl.OTPServiceParams{Hasher: auth.NewOTPHasher(cfg), Sender: mail, Clock: systemClock, Config: cfg, Logger: logger})
	devices := impl.NewDeviceService(impl.DeviceServiceParams{Sender: mail, Clock: systemClock, Config: cfg, Logger: logger})
	authUC, err := impl.NewAuthService(impl.AuthServiceParams{
		Accounts: memory.NewAccountRepository(),
		OTP:      otp,
		Devices:  devices,
		Hasher:   auth.NewPasswordHasher(cfg),
		Policy:   auth.NewPasswordPolicy(cfg),
		Sessions: sessions,
		Revoker:  cache.NewRedisRevoker(redisClient, systemClock),
		Locker:   cache.NewRedisLocker(redisClient, cfg.OTP.IssueLockTTL),
		Events:   events,
		Clock:    systemClock,
		Config:   cfg,
		Logger:   logger,
	})
	require.NoError(t, err)

	jar := cookie.NewJar(cfg, sessions)
	guard := auth.NewCSRFGuard()

	e := NewEcho(ServerParams{
		Cfg:             cfg,
		Logger:          logger,
		ErrorMiddleware: apimiddleware.NewErrorMiddleware(logger, cfg),
		RouterParams: router.RouterParams{
			AuthHandler:       handler.NewAuthHandler(handler.AuthHandlerParams{AuthUC: authUC, Jar: jar, Logger: logger}),
			CSRFHandler:       handler.NewCSRFHandler(guard, jar, cfg),
			HealthHandler:     handler.NewHealthHandler(cfg),
			CSRFMiddleware:    apimiddleware.NewCSRFMiddleware(guard, jar, cfg),
			SessionMiddleware: apimiddleware.NewSessionMiddleware(authUC, jar),
		},
	})

	return &client{t: t, handler: e, cookies: map[string]*http.Cookie{}}, mail
}

const registerBody = `{"email":"Owner@Acme.com","password":"Abcd1234!","userName":"acme","companyName":"Acme Ltd"}`

func TestAPI_Health(t *testing.T) {
	cl, _ := newTestServer(t)

	rec, env := cl.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, rec.Header().Get("X-Request-Id"), env.Meta.RequestID)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestAPI_CSRFRequired(t *testing.T) {
	cl, _ := newTestServer(t)

	rec, env := cl.do(http.MethodPost, "/api/v1/company/register", registerBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "CSRF_MISSING", env.Error.Code)

	cl.fetchCSRF()
	cl.csrf = "tampered"
	rec, env = cl.do(http.MethodPost, "/api/v1/company/register", registerBody)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "CSRF_MISMATCH", env.Error.Code)
}

func TestAPI_AccountLifecycle(t *testing.T) {
	cl, mail := newTestServer(t)
	cl.fetchCSRF()

	rec, env := cl.do(http.MethodPost, "/api/v1/company/register", registerBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"email":"owner@acme.com"`)
	assert.Contains(t, string(env.Data), `"userName":"acme.BHCFamily"`)

	rec, _ = cl.do(http.MethodPost, "/api/v1/company/verify-email", `{"email":"owner@acme.com","otp":"`+mail.lastCode(t)+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session, ok := cl.cookies["auth_token"]
	require.True(t, ok, "session cookie set")
	assert.True(t, session.HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, session.SameSite)
	assert.Equal(t, int((24 * time.Hour).Seconds()), session.MaxAge, "max-age is the kind's session lifetime")

	rec, env = cl.do(http.MethodGet, "/api/v1/company/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), `"email":"owner@acme.com"`)
	assert.Contains(t, string(env.Data), `"displayName":"Acme Ltd"`)

	rec, env = cl.do(http.MethodGet, "/api/v1/worker/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "a company session is not a worker session")
	assert.Equal(t, "SESSION_INVALID", env.Error.Code)

	rec, _ = cl.do(http.MethodGet, "/api/v1/admin/me", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	beforeChange := cl.cookies["auth_token"]
	rec, env = cl.do(http.MethodPut, "/api/v1/company/email", `{"email":"ceo@acme.com","currentPassword":"Abcd1234!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, string(env.Data), `"email":"ceo@acme.com"`)
	afterChange := cl.cookies["auth_token"]
	require.NotEqual(t, beforeChange.Value, afterChange.Value, "a new session is issued")

	cl.cookies["auth_token"] = beforeChange
	rec, env = cl.do(http.MethodGet, "/api/v1/company/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "the session used to change the email is revoked")
	assert.Equal(t, "SESSION_INVALID", env.Error.Code)
	cl.cookies["auth_token"] = afterChange

	stale := cl.cookies["auth_token"]
	rec, _ = cl.do(http.MethodPost, "/api/v1/company/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok = cl.cookies["auth_token"]
	assert.False(t, ok, "session cookie cleared")

	cl.cookies["auth_token"] = stale
	rec, env = cl.do(http.MethodGet, "/api/v1/company/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "revoked sessions are refused")
	assert.Equal(t, "SESSION_INVALID", env.Error.Code)
	delete(cl.cookies, "auth_token")

	rec, env = cl.do(http.MethodGet, "/api/v1/company/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "SESSION_MISSING", env.Error.Code)

	rec, _ = cl.do(http.MethodPost, "/api/v1/company/login", `{"email":"ceo@acme.com","password":"Abcd1234!"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	_, ok = cl.cookies["auth_token"]
	assert.True(t, ok)
}

func TestAPI_ErrorEnvelope(t *testing.T) {
	cl, _ := newTestServer(t)
	cl.fetchCSRF()

	rec, env := cl.do(http.MethodPost, "/api/v1/worker/register", `{"email":"w@x.com"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.Equal(t, "VALIDATION", env.Error.Kind)
	assert.NotNil(t, env.Error.Details, "details are exposed in development")

	rec, env = cl.do(http.MethodPost, "/api/v1/worker/login", `{"email":"w@x.com","password":"Abcd1234!"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "ACCOUNT_NOT_FOUND", env.Error.Code)
	assert.Nil(t, env.Error.Details, "never for 403")

	rec, env = cl.do(http.MethodPost, "/api/v1/worker/login", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	rec, env = cl.do(http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestRateLimiter_IgnoresForwardedHeaders(t *testing.T) {
	e := echo.New()
	e.Use(echomiddleware.RateLimiterWithConfig(rateLimiterConfig(config.RateLimitConfig{RequestsPerHour: 1, Burst: 2})))
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	call := func(remoteAddr, forwardedIP string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remoteAddr
		req.Header.Set("X-Real-IP", forwardedIP)
		req.Header.Set("CF-Connecting-IP", forwardedIP)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call("192.0.2.1:4000", "203.0.113.1"))
	assert.Equal(t, http.StatusOK, call("192.0.2.1:4001", "203.0.113.2"))
	assert.Equal(t, http.StatusTooManyRequests, call("192.0.2.1:4002", "203.0.113.3"), "rotating headers does not reset the budget")
	assert.Equal(t, http.StatusOK, call("192.0.2.9:4000", "203.0.113.3"), "another peer has its own budget")
}
