package usecase

import (
	"context"

	"bidhub/internal/domain/entity"
)

// DeviceAlert selects the anomaly notification sent for an unknown device.
type DeviceAlert string

const (
	AlertLogin         DeviceAlert = "login"
	AlertPasswordReset DeviceAlert = "password_reset"
	AlertEmailChange   DeviceAlert = "email_change"
)

// DeviceUsecase tracks the devices an account acts from.
type DeviceUsecase interface {
	// Fingerprint derives a stable device id from the request transport attributes.
	Fingerprint(meta entity.RequestMeta) string

	// IsKnown reports whether the account has used the device before.
	IsKnown(account *entity.Account, deviceID string) bool

	// RecordDevice upserts the device and reports whether it was new.
	RecordDevice(account *entity.Account, deviceID string, meta entity.RequestMeta) bool

	// NotifyNewDevice sends a best-effort anomaly email; failures are logged, never returned.
	NotifyNewDevice(ctx context.Context, to string, meta entity.RequestMeta, alert DeviceAlert)
}
