package entity

import (
	"time"

	"github.com/google/uuid"
)

// SecurityEventType names an auditable identity event.
type SecurityEventType string

const (
	EventAccountRegistered SecurityEventType = "account.registered"
	EventAccountVerified   SecurityEventType = "account.verified"
	EventLoginSucceeded    SecurityEventType = "login.succeeded"
	EventNewDevice         SecurityEventType = "device.new"
	EventPasswordReset     SecurityEventType = "password.reset"
	EventEmailChanged      SecurityEventType = "email.changed"
	EventLoggedOut         SecurityEventType = "session.logged_out"
)

// SecurityEvent is published after an identity operation succeeds.
type SecurityEvent struct {
	ID         string            `json:"id"`
	RequestID  string            `json:"request_id,omitempty"` // For distributed tracing
	Type       SecurityEventType `json:"type"`
	AccountID  uuid.UUID         `json:"account_id"`
	Kind       AccountKind       `json:"kind"`
	DeviceID   string            `json:"device_id,omitempty"`
	SourceIP   string            `json:"source_ip,omitempty"`
	UserAgent  string            `json:"user_agent,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}
