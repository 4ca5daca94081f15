// Package services holds the session/trust and reward-integrity core: OTP
// challenges, device-bound sessions, the auth flow, step-up authorization,
// the reading state machine and the earnings ledger.
package services

import "errors"

var (
	// ErrValidation indicates malformed or missing input.
	ErrValidation = errors.New("validation failed")

	// ErrOTPRequired signals that a challenge was issued and the caller must
	// collect a code. It is an expected control branch, not a failure.
	ErrOTPRequired = errors.New("OTP_REQUIRED")

	// ErrOTPInvalidCode indicates a code mismatch; the challenge survives
	// until its attempt budget runs out.
	ErrOTPInvalidCode = errors.New("invalid verification code")

	// ErrOTPExpired indicates the challenge outlived its TTL and was
	// invalidated.
	ErrOTPExpired = errors.New("verification code expired")

	// ErrOTPTooManyAttempts indicates the attempt budget was exhausted and
	// the challenge was invalidated.
	ErrOTPTooManyAttempts = errors.New("too many verification attempts")

	// ErrSessionInvalid indicates a missing or expired session token, or a
	// fingerprint that does not match the bound one.
	ErrSessionInvalid = errors.New("session invalid")

	// ErrInsufficientBalance indicates a ledger append that would drive the
	// balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrSuspiciousActivity indicates the anti-automation heuristic rejected
	// a reward claim.
	ErrSuspiciousActivity = errors.New("suspicious activity detected")
)
