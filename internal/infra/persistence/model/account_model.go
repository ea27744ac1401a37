package model

import (
	"time"

	"github.com/google/uuid"
)

// Unique index names, also used to tell email and handle collisions apart.
const (
	AccountEmailIndex  = "idx_accounts_kind_email"
	AccountHandleIndex = "idx_accounts_kind_handle"
)

// AccountModel mirrors the 'accounts' table. Company and worker accounts
// share the table and are separated by Kind.
type AccountModel struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Kind              string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_accounts_kind_email,priority:1;uniqueIndex:idx_accounts_kind_handle,priority:1"`
	Email             string    `gorm:"type:varchar(255);not null;uniqueIndex:idx_accounts_kind_email,priority:2"`
	Handle            string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_accounts_kind_handle,priority:2"`
	DisplayName       string    `gorm:"type:varchar(255)"`
	PasswordHash      string    `gorm:"type:varchar(255);not null"`
	PasswordExpiresAt time.Time
	IsVerified        bool `gorm:"not null;default:false"`
	VerifiedAt        *time.Time

	OTPCodeHash  *string `gorm:"type:varchar(255)"`
	OTPPurpose   *string `gorm:"type:varchar(16)"`
	OTPExpiresAt *time.Time

	RegisterOTPCount        int `gorm:"not null;default:0"`
	RegisterOTPLockoutUntil *time.Time
	ForgotOTPCount          int `gorm:"not null;default:0"`
	ForgotOTPLockoutUntil   *time.Time
	FailedOTPAttempts       int `gorm:"not null;default:0"`

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	Devices []AccountDeviceModel `gorm:"foreignKey:AccountID;constraint:OnDelete:CASCADE"`
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}

// AccountDeviceModel mirrors the 'account_devices' table, one row per known device.
type AccountDeviceModel struct {
	AccountID uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeviceID  string    `gorm:"type:varchar(64);primaryKey"`
	UserAgent string    `gorm:"type:text"`
	SourceIP  string    `gorm:"type:varchar(64)"`
	FirstSeen time.Time `gorm:"not null"`
	LastUsed  time.Time `gorm:"not null"`
}

// TableName explicitly sets the table name for GORM.
func (AccountDeviceModel) TableName() string {
	return "account_devices"
}
