// Package notification delivers OTP and device alert emails.
package notification

import (
	"context"
	"log/slog"
	"time"

	"bidhub/config"
	"bidhub/internal/domain/service"
	"bidhub/internal/errors"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

const providerSMTP = "smtp"

type smtpSender struct {
	cfg    config.MailConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewSMTPSender builds a sender that opens one SMTP session per message.
// The caller's context bounds dialing and sending.
func NewSMTPSender(cfg config.MailConfig, logger *slog.Logger) (service.NotificationSender, error) {
	if cfg.Host == "" {
		return nil, errors.New("mail.host is required for the smtp provider")
	}
	if cfg.From == "" {
		return nil, errors.New("mail.from is required for the smtp provider")
	}

	return &smtpSender{cfg: cfg, logger: logger, now: time.Now}, nil
}

func (s *smtpSender) Send(ctx context.Context, msg *service.Message) (*service.DeliveryReceipt, error) {
	m := mail.NewMsg()
	if err := m.From(s.cfg.From); err != nil {
		return nil, errors.Wrap(err, "invalid sender address")
	}
	if err := m.To(msg.To); err != nil {
		return nil, errors.Wrap(err, "invalid recipient address")
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.HTML)

	messageID := uuid.NewString()
	m.SetMessageIDWithValue(messageID)
	m.SetDate()

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return nil, errors.Wrap(err, "create smtp client")
	}

	if err := client.DialAndSendWithContext(ctx, m); err != nil {
		return nil, errors.Wrap(err, "send mail")
	}

	s.logger.Debug("Mail sent", slog.String("messageID", messageID), slog.String("subject", msg.Subject))

	return &service.DeliveryReceipt{
		MessageID: messageID,
		Provider:  providerSMTP,
		SentAt:    s.now(),
	}, nil
}

func (s *smtpSender) clientOptions() []mail.Option {
	opts := []mail.Option{}
	if s.cfg.Port > 0 {
		opts = append(opts, mail.WithPort(s.cfg.Port))
	}
	if s.cfg.TLS {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if s.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}
