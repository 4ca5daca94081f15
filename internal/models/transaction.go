package models

import (
	"time"

	"github.com/google/uuid"
)

// Transaction kinds.
const (
	TxnKindEarning    = "earning"
	TxnKindReferral   = "referral"
	TxnKindWithdrawal = "withdrawal"
	TxnKindBonus      = "bonus"
)

// Transaction statuses.
const (
	TxnStatusCompleted = "completed"
	TxnStatusPending   = "pending"
)

// Transaction is a single immutable entry in a user's earnings ledger.
// Amount is signed: credits are positive, withdrawals negative. Seq increases
// monotonically per user and orders the ledger most-recent-first.
type Transaction struct {
	BaseModel
	UserID      uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Seq         int64     `gorm:"index" json:"seq"`
	Kind        string    `json:"kind"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	Status      string    `json:"status"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EarningKind reports whether kind counts toward totalEarned when positive.
func EarningKind(kind string) bool {
	switch kind {
	case TxnKindEarning, TxnKindReferral, TxnKindBonus:
		return true
	}
	return false
}
