package models

import (
	"time"

	"github.com/google/uuid"
)

// Session binds a high-entropy token to the device fingerprint it was issued
// against. Presenting the token from another fingerprint invalidates it.
type Session struct {
	BaseModel
	Token            string    `gorm:"uniqueIndex" json:"-"`
	UserID           uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	BoundFingerprint string    `json:"-"`
	IssuedAt         time.Time `json:"issued_at"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// DeviceTrust marks a fingerprint as recognized, letting a returning device
// skip the login OTP until it expires. It is a convenience hint, not a
// security boundary.
type DeviceTrust struct {
	BaseModel
	Fingerprint string    `gorm:"uniqueIndex" json:"-"`
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	ExpiresAt   time.Time `json:"expires_at"`
}
