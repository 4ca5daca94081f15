package services

import (
	"context"
	"fmt"

	"github.com/example/bookbucks/internal/models"
)

// Sensitive operations that always require step-up verification.
const (
	OpWithdrawal     = "withdrawal"
	OpPasswordChange = "password_change"
	OpEmailChange    = "email_change"
)

// StepUpService issues fresh verification challenges for sensitive
// operations. Device trust never bypasses it, and nothing persists between
// calls: every sensitive operation re-challenges.
type StepUpService struct {
	challenges *ChallengeService
}

// NewStepUpService constructs a StepUpService.
func NewStepUpService(challenges *ChallengeService) *StepUpService {
	return &StepUpService{challenges: challenges}
}

// Require issues a stepup challenge for the identity. The caller must pass
// Verify before proceeding with the operation.
func (s *StepUpService) Require(ctx context.Context, identity, operation string) (*models.Challenge, error) {
	switch operation {
	case OpWithdrawal, OpPasswordChange, OpEmailChange:
	default:
		return nil, fmt.Errorf("%w: %q is not a step-up operation", ErrValidation, operation)
	}

	return s.challenges.Issue(ctx, identity, models.PurposeStepUp)
}

// Verify checks the submitted step-up code. Codes issued for signup or login
// do not pass here.
func (s *StepUpService) Verify(ctx context.Context, identity, code string) error {
	return s.challenges.Verify(ctx, identity, models.PurposeStepUp, code)
}
