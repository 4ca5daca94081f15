package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

// LedgerService atomically updates a user's balance and appends immutable
// transactions. The invariant it protects: balance always equals the sum of
// the user's transaction amounts.
type LedgerService struct {
	users store.UserStore
	clock func() time.Time
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(users store.UserStore, clock func() time.Time) *LedgerService {
	if clock == nil {
		clock = time.Now
	}
	return &LedgerService{users: users, clock: clock}
}

// Append applies a signed delta to the user's balance and records the
// transaction. The mutation runs under per-user mutual exclusion: the balance
// update and the ledger entry commit together or not at all. A delta that
// would drive the balance negative fails with ErrInsufficientBalance and
// mutates nothing.
func (s *LedgerService) Append(ctx context.Context, userID uuid.UUID, delta int64, kind, description string) (*models.Transaction, error) {
	switch kind {
	case models.TxnKindEarning, models.TxnKindReferral, models.TxnKindWithdrawal, models.TxnKindBonus:
	default:
		return nil, fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, kind)
	}

	status := models.TxnStatusCompleted
	if kind == models.TxnKindWithdrawal {
		status = models.TxnStatusPending
	}

	return s.users.MutateUser(ctx, userID, func(u *models.User) (*models.Transaction, error) {
		newBalance := u.Balance + delta
		if newBalance < 0 {
			return nil, ErrInsufficientBalance
		}

		u.Balance = newBalance
		if delta > 0 && models.EarningKind(kind) {
			u.TotalEarned += delta
		}
		if kind == models.TxnKindEarning {
			u.PagesRead++
		}
		u.LedgerSeq++

		return &models.Transaction{
			Seq:         u.LedgerSeq,
			Kind:        kind,
			Amount:      delta,
			Description: description,
			Status:      status,
			OccurredAt:  s.clock(),
		}, nil
	})
}

// CreditReferral credits a referrer: the referral transaction, the referral
// counters and totalEarned move in the same atomic mutation.
func (s *LedgerService) CreditReferral(ctx context.Context, referrerID uuid.UUID, amount int64, description string) error {
	if amount <= 0 {
		return fmt.Errorf("%w: referral amount must be positive", ErrValidation)
	}

	_, err := s.users.MutateUser(ctx, referrerID, func(u *models.User) (*models.Transaction, error) {
		u.Balance += amount
		u.TotalEarned += amount
		u.Referrals++
		u.ReferralEarnings += amount
		u.LedgerSeq++

		return &models.Transaction{
			Seq:         u.LedgerSeq,
			Kind:        models.TxnKindReferral,
			Amount:      amount,
			Description: description,
			Status:      models.TxnStatusCompleted,
			OccurredAt:  s.clock(),
		}, nil
	})
	return err
}

// CompleteBook bumps the finished-books counter without touching the ledger.
func (s *LedgerService) CompleteBook(ctx context.Context, userID uuid.UUID) error {
	_, err := s.users.MutateUser(ctx, userID, func(u *models.User) (*models.Transaction, error) {
		u.BooksRead++
		return nil, nil
	})
	return err
}

// History returns a page of the user's ledger, most recent first.
func (s *LedgerService) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	return s.users.Transactions(ctx, userID, limit, offset)
}
