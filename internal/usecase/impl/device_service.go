package impl

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	"bidhub/config"
	deliverycontext "bidhub/internal/delivery/context"
	"bidhub/internal/domain/entity"
	"bidhub/internal/domain/service"
	"bidhub/internal/usecase"

	"go.uber.org/fx"
)

type deviceService struct {
	sender service.NotificationSender
	clock  service.Clock
	otp    config.OTPConfig
	logger *slog.Logger
}

// DeviceServiceParams holds dependencies for DeviceService, injected by Fx.
type DeviceServiceParams struct {
	fx.In

	Sender service.NotificationSender
	Clock  service.Clock
	Config *config.Config
	Logger *slog.Logger
}

// NewDeviceService creates the device trust tracker.
func NewDeviceService(params DeviceServiceParams) usecase.DeviceUsecase {
	return &deviceService{
		sender: params.Sender,
		clock:  params.Clock,
		otp:    params.Config.OTP,
		logger: params.Logger,
	}
}

// Fingerprint hashes client IP and user agent so raw values are not needed for comparison.
func (s *deviceService) Fingerprint(meta entity.RequestMeta) string {
	sum := sha256.Sum256([]byte(meta.IP + "|" + meta.UserAgent))

	return hex.EncodeToString(sum[:])
}

// IsKnown reports whether the account has used the device before.
func (s *deviceService) IsKnown(account *entity.Account, deviceID string) bool {
	_, ok := account.FindDevice(deviceID)

	return ok
}

// RecordDevice refreshes an existing entry or appends a new one.
func (s *deviceService) RecordDevice(account *entity.Account, deviceID string, meta entity.RequestMeta) bool {
	now := s.clock.Now()

	if device, ok := account.FindDevice(deviceID); ok {
		device.LastUsed = now
		device.SourceIP = meta.IP
		device.UserAgent = meta.UserAgent

		return false
	}

	account.KnownDevices = append(account.KnownDevices, entity.KnownDevice{
		DeviceID:  deviceID,
		UserAgent: meta.UserAgent,
		SourceIP:  meta.IP,
		FirstSeen: now,
		LastUsed:  now,
	})

	return true
}

// NotifyNewDevice sends the anomaly email. The primary action has already
// been committed, so any failure is only logged.
func (s *deviceService) NotifyNewDevice(ctx context.Context, to string, meta entity.RequestMeta, alert usecase.DeviceAlert) {
	logger := deliverycontext.GetLoggerOrDefault(ctx, s.logger)

	subject, html, err := renderDeviceAlertMail(alert, meta, s.clock.Now())
	if err != nil {
		logger.Warn("Failed to render device alert", slog.String("alert", string(alert)), slog.Any("error", err))

		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.otp.DeliveryTimeout)
	defer cancel()

	if _, err := s.sender.Send(sendCtx, &service.Message{To: to, Subject: subject, HTML: html}); err != nil {
		logger.Warn("Failed to send device alert", slog.String("alert", string(alert)), slog.Any("error", err))

		return
	}

	logger.Info("Device alert sent", slog.String("alert", string(alert)))
}
