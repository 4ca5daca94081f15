package models

import (
	"time"
)

// User represents a reader account with its earnings state. All monetary
// fields are integer minor units (kobo).
type User struct {
	BaseModel
	Name             string        `json:"name"`
	Email            string        `gorm:"uniqueIndex" json:"email"`
	Balance          int64         `json:"balance"`
	TotalEarned      int64         `json:"total_earned"`
	Referrals        int           `json:"referrals"`
	ReferralEarnings int64         `json:"referral_earnings"`
	ReferralCode     string        `gorm:"uniqueIndex" json:"referral_code"`
	BooksRead        int           `json:"books_read"`
	PagesRead        int           `json:"pages_read"`
	Theme            string        `json:"theme"`
	JoinDate         time.Time     `json:"join_date"`
	LedgerSeq        int64         `json:"-"`
	Transactions     []Transaction `json:"transactions,omitempty"`
}

// Credential stores the salted password hash for an identity. It belongs to
// the identity-store boundary and is never loaded together with User.
type Credential struct {
	BaseModel
	Email        string `gorm:"uniqueIndex" json:"email"`
	PasswordHash string `json:"-"`
}
