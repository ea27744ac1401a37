package service

import (
	"context"
	"time"

	"bidhub/internal/domain/entity"
)

// Message is an outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// DeliveryReceipt describes an accepted message.
type DeliveryReceipt struct {
	MessageID string
	Provider  string
	SentAt    time.Time
}

// NotificationSender delivers OTP and alert emails. Implementations must
// honor the context deadline imposed by the caller.
type NotificationSender interface {
	Send(ctx context.Context, msg *Message) (*DeliveryReceipt, error)
}

// EventPublisher defines the interface for publishing security events to a message queue
type EventPublisher interface {
	// PublishSecurityEvent publishes an identity event for async processing
	PublishSecurityEvent(ctx context.Context, event *entity.SecurityEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
