package notification

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	"bidhub/config"
	"bidhub/internal/domain/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewNotificationSender(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		mail     config.MailConfig
		wantType any
		wantErr  bool
	}{
		{name: "log in development", env: config.EnvDevelopment, mail: config.MailConfig{Provider: config.MailProviderLog}, wantType: &logSender{}},
		{name: "default is log", env: config.EnvDevelopment, wantType: &logSender{}},
		{name: "log refused in production", env: config.EnvProduction, mail: config.MailConfig{Provider: config.MailProviderLog}, wantErr: true},
		{name: "smtp", env: config.EnvProduction, mail: config.MailConfig{Provider: config.MailProviderSMTP, Host: "smtp.example.com", Port: 587, From: "no-reply@example.com"}, wantType: &smtpSender{}},
		{name: "smtp without host", env: config.EnvProduction, mail: config.MailConfig{Provider: config.MailProviderSMTP, From: "no-reply@example.com"}, wantErr: true},
		{name: "smtp without from", env: config.EnvProduction, mail: config.MailConfig{Provider: config.MailProviderSMTP, Host: "smtp.example.com"}, wantErr: true},
		{name: "unknown", env: config.EnvDevelopment, mail: config.MailConfig{Provider: "pigeon"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Mail: tt.mail}
			cfg.Env.Env = tt.env

			sender, err := NewNotificationSender(SenderParams{Config: cfg, Logger: discardLogger()})
			if tt.wantErr {
				assert.Error(t, err)

				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, sender)
		})
	}
}

func TestLogSender_Send(t *testing.T) {
	var buf bytes.Buffer
	sender := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	receipt, err := sender.Send(context.Background(), &service.Message{To: "a@example.com", Subject: "Verify your email", HTML: "<p>123456</p>"})
	require.NoError(t, err)
	assert.Equal(t, providerLog, receipt.Provider)
	assert.NotEmpty(t, receipt.MessageID)
	assert.Contains(t, buf.String(), "123456")
}

func TestLogSender_HonorsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLogSender(discardLogger()).Send(ctx, &service.Message{To: "a@example.com"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSMTPSender_InvalidRecipient(t *testing.T) {
	sender, err := NewSMTPSender(config.MailConfig{Host: "smtp.example.com", From: "no-reply@example.com"}, discardLogger())
	require.NoError(t, err)

	_, err = sender.Send(context.Background(), &service.Message{To: "not an address"})
	assert.Error(t, err)
}
