package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeEnvKey_UsesExistingCamelCaseKeys(t *testing.T) {
	existing := map[string]any{
		"postgres": map[string]any{
			"sslMode": "disable",
			"master": map[string]any{
				"userName": "user",
			},
		},
		"session": map[string]any{
			"cookieDomain": "",
			"kinds": map[string]any{
				"company": map[string]any{"secret": ""},
			},
		},
		"otp": map[string]any{
			"registerMaxAttempts": 5,
		},
		"pubsub": map[string]any{
			"topicId": "",
		},
	}

	tests := []struct {
		envKey string
		want   string
	}{
		{envKey: "POSTGRES_SSLMODE", want: "postgres.sslMode"},
		{envKey: "POSTGRES_MASTER_USERNAME", want: "postgres.master.userName"},
		{envKey: "SESSION_COOKIEDOMAIN", want: "session.cookieDomain"},
		{envKey: "SESSION_KINDS_COMPANY_SECRET", want: "session.kinds.company.secret"},
		{envKey: "OTP_REGISTERMAXATTEMPTS", want: "otp.registerMaxAttempts"},
		{envKey: "PUBSUB_TOPICID", want: "pubsub.topicId"},
		{envKey: "NEW_FEATURE_FLAG", want: "new.feature.flag"},
	}

	for _, tt := range tests {
		t.Run(tt.envKey, func(t *testing.T) {
			if got := canonicalizeEnvKey(tt.envKey, existing); got != tt.want {
				t.Fatalf("canonicalizeEnvKey(%q) = %q, want %q", tt.envKey, got, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	assert.Equal(t, "10KB", cfg.HTTP.MaxRequestBodySize)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "auth_token", cfg.Session.CookieName)
	assert.Equal(t, 24*time.Hour, cfg.Session.Kinds.Worker.TTL)
	assert.Equal(t, "csrfToken", cfg.CSRF.CookieName)
	assert.Equal(t, time.Hour, cfg.CSRF.TTL)
	assert.Equal(t, 6, cfg.OTP.Length)
	assert.Equal(t, 10*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, 5, cfg.OTP.RegisterMaxAttempts)
	assert.Equal(t, 4, cfg.OTP.ForgotMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.OTP.DeliveryTimeout)
	assert.Equal(t, 45*time.Second, cfg.OTP.IssueLockTTL)
	assert.Equal(t, 30*24*time.Hour, cfg.Password.Expiry)
	assert.Equal(t, ".BHCFamily", cfg.Accounts.HandleSuffix)
	assert.Equal(t, MailProviderLog, cfg.Mail.Provider)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{}
	cfg.OTP.RegisterMaxAttempts = 3
	cfg.Session.Kinds.Company.TTL = time.Hour
	cfg.Store.Driver = StoreDriverMongo

	ApplyDefaults(cfg)

	assert.Equal(t, 3, cfg.OTP.RegisterMaxAttempts)
	assert.Equal(t, time.Hour, cfg.Session.Kinds.Company.TTL)
	assert.Equal(t, StoreDriverMongo, cfg.Store.Driver)
}

func TestEnvironmentModes(t *testing.T) {
	cfg := &Config{}
	cfg.Env.Env = "Production"
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())

	cfg.Env.Env = EnvDevelopment
	assert.False(t, cfg.IsProduction())
	assert.True(t, cfg.IsDevelopment())
}
