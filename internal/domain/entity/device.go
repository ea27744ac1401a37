package entity

import "time"

// KnownDevice is a device an account has completed a sensitive action from.
type KnownDevice struct {
	DeviceID  string    `json:"device_id"`  // Fingerprint derived from client IP and user agent.
	UserAgent string    `json:"user_agent"` // User agent seen on the last use, for audit display.
	SourceIP  string    `json:"source_ip"`  // Client IP seen on the last use, for audit display.
	FirstSeen time.Time `json:"first_seen"` // When the device was first recorded.
	LastUsed  time.Time `json:"last_used"`  // Refreshed on every recorded use.
}

// RequestMeta carries the transport attributes of the request that
// triggered an operation.
type RequestMeta struct {
	IP        string
	UserAgent string
	RequestID string
}
