package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

// ChallengeService issues, stores and verifies one-time passcodes. Expiry is
// checked lazily at verify time; there is no background sweeping.
type ChallengeService struct {
	challenges  store.ChallengeStore
	ttl         time.Duration
	maxAttempts int
	clock       func() time.Time
}

// NewChallengeService constructs a ChallengeService.
func NewChallengeService(challenges store.ChallengeStore, ttl time.Duration, maxAttempts int, clock func() time.Time) *ChallengeService {
	if clock == nil {
		clock = time.Now
	}
	return &ChallengeService{
		challenges:  challenges,
		ttl:         ttl,
		maxAttempts: maxAttempts,
		clock:       clock,
	}
}

// Issue generates a fresh 6-digit challenge for (identity, purpose),
// superseding any outstanding one for the same pair.
func (s *ChallengeService) Issue(ctx context.Context, identity, purpose string) (*models.Challenge, error) {
	switch purpose {
	case models.PurposeSignup, models.PurposeLogin, models.PurposeStepUp:
	default:
		return nil, fmt.Errorf("%w: unknown challenge purpose %q", ErrValidation, purpose)
	}

	code, err := generateCode()
	if err != nil {
		return nil, fmt.Errorf("generate challenge code: %w", err)
	}

	now := s.clock()
	ch := &models.Challenge{
		Identity:    identity,
		Purpose:     purpose,
		Code:        code,
		ExpiresAt:   now.Add(s.ttl),
		Attempts:    0,
		MaxAttempts: s.maxAttempts,
	}

	if err := s.challenges.ReplaceChallenge(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// Verify checks a submitted code against the identity's outstanding challenge
// for the given purpose; a code issued for another purpose never matches. A
// correct code consumes the challenge; expiry or an exhausted attempt budget
// invalidates it; a mismatch burns one attempt.
func (s *ChallengeService) Verify(ctx context.Context, identity, purpose, code string) error {
	ch, err := s.challenges.LatestChallenge(ctx, identity, purpose)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrOTPInvalidCode
		}
		return err
	}

	if !s.clock().Before(ch.ExpiresAt) {
		if err := s.challenges.DeleteChallenge(ctx, ch.ID); err != nil {
			return err
		}
		return ErrOTPExpired
	}

	if ch.Attempts >= ch.MaxAttempts {
		if err := s.challenges.DeleteChallenge(ctx, ch.ID); err != nil {
			return err
		}
		return ErrOTPTooManyAttempts
	}

	if ch.Code != code {
		ch.Attempts++
		if err := s.challenges.UpdateChallenge(ctx, ch); err != nil {
			return err
		}
		return ErrOTPInvalidCode
	}

	// Single use: a consumed challenge cannot be replayed.
	return s.challenges.DeleteChallenge(ctx, ch.ID)
}

func generateCode() (string, error) {
	max := big.NewInt(1000000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
