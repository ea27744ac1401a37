package notification

import (
	"log/slog"

	"bidhub/config"
	"bidhub/internal/domain/service"

	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SenderParams holds dependencies for the NotificationSender, injected by Fx
type SenderParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

// NewNotificationSender creates a NotificationSender based on mail.provider.
func NewNotificationSender(params SenderParams) (service.NotificationSender, error) {
	cfg := params.Config.Mail
	logger := params.Logger

	switch cfg.Provider {
	case config.MailProviderSMTP:
		logger.Info("Using SMTP mail sender",
			slog.String("host", cfg.Host),
			slog.Int("port", cfg.Port),
		)

		return NewSMTPSender(cfg, logger)

	case config.MailProviderLog, "":
		if params.Config.IsProduction() {
			return nil, errors.New("log mail provider is not allowed in production")
		}
		logger.Warn("Using log mail sender, messages are not delivered")

		return NewLogSender(logger), nil

	default:
		return nil, errors.Errorf("unknown mail provider: %s", cfg.Provider)
	}
}

// Module provides the notification FX module
//
//nolint:gochecknoglobals
var Module = fx.Options(
	fx.Provide(NewNotificationSender),
)
