package models

import (
	"time"
)

// Challenge purposes.
const (
	PurposeSignup = "signup"
	PurposeLogin  = "login"
	PurposeStepUp = "stepup"
)

// Challenge is a pending one-time passcode issued to an identity. At most one
// challenge is outstanding per (identity, purpose); re-issuing replaces it.
type Challenge struct {
	BaseModel
	Identity    string    `gorm:"index" json:"identity"`
	Purpose     string    `gorm:"index" json:"purpose"`
	Code        string    `json:"-"`
	ExpiresAt   time.Time `json:"expires_at"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
}
