package notification

import (
	"context"
	"log/slog"
	"time"

	"bidhub/internal/domain/service"

	"github.com/google/uuid"
)

const providerLog = "log"

// logSender writes messages to the log instead of sending them. Message
// bodies, OTP codes included, end up in the log, so it is refused in production.
type logSender struct {
	logger *slog.Logger
}

// NewLogSender creates a development sender.
func NewLogSender(logger *slog.Logger) service.NotificationSender {
	return &logSender{logger: logger}
}

func (s *logSender) Send(ctx context.Context, msg *service.Message) (*service.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	messageID := uuid.NewString()
	s.logger.InfoContext(ctx, "[LogMailer] Message",
		slog.String("messageID", messageID),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.String("html", msg.HTML),
	)

	return &service.DeliveryReceipt{
		MessageID: messageID,
		Provider:  providerLog,
		SentAt:    time.Now(),
	}, nil
}
