package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store/memory"
)

// fakeClock is a manually advanced clock for deterministic timer tests.
type fakeClock struct {
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func createTestUser(t *testing.T, db *memory.DB, balance int64) *models.User {
	t.Helper()

	user := &models.User{
		Name:         "Ada",
		Email:        "a@x.com",
		ReferralCode: "ADA123",
		Theme:        "light",
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user: %v", err)
	}

	if balance > 0 {
		_, err := db.MutateUser(context.Background(), user.ID, func(u *models.User) (*models.Transaction, error) {
			u.Balance = balance
			u.TotalEarned = balance
			u.LedgerSeq++
			return &models.Transaction{
				Seq:        u.LedgerSeq,
				Kind:       models.TxnKindEarning,
				Amount:     balance,
				Status:     models.TxnStatusCompleted,
				OccurredAt: time.Now(),
			}, nil
		})
		if err != nil {
			t.Fatalf("seed balance: %v", err)
		}
	}
	return user
}

// checkLedgerInvariant verifies balance == sum of transaction amounts.
func checkLedgerInvariant(t *testing.T, db *memory.DB, userID uuid.UUID) {
	t.Helper()

	user, err := db.UserByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("load user: %v", err)
	}

	txns, _, err := db.Transactions(context.Background(), userID, 0, 0)
	if err != nil {
		t.Fatalf("load transactions: %v", err)
	}

	var sum int64
	for _, txn := range txns {
		sum += txn.Amount
	}
	if user.Balance != sum {
		t.Fatalf("ledger invariant broken: balance %d, transaction sum %d", user.Balance, sum)
	}
}
