// Package store defines the persistence boundaries for the trust and reward
// core. Services depend on these interfaces; adapters live in subpackages.
package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/models"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// UserStore persists reader profiles and their ledgers.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByReferralCode(ctx context.Context, code string) (*models.User, error)

	// MutateUser loads the user, runs fn under per-user mutual exclusion and
	// persists the mutated user together with the transaction fn returns (if
	// any). Either everything fn did is committed or nothing is. All user
	// writes go through here: a read-modify-write against a stale copy could
	// silently undo a concurrently committed ledger append.
	MutateUser(ctx context.Context, id uuid.UUID, fn func(u *models.User) (*models.Transaction, error)) (*models.Transaction, error)

	// Transactions returns a page of the user's ledger, most recent first,
	// along with the total entry count.
	Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error)
}

// ChallengeStore persists pending OTP challenges.
type ChallengeStore interface {
	// ReplaceChallenge stores ch, superseding any prior challenge for the
	// same (identity, purpose).
	ReplaceChallenge(ctx context.Context, ch *models.Challenge) error

	// LatestChallenge returns the most recently issued challenge for the
	// (identity, purpose) pair.
	LatestChallenge(ctx context.Context, identity, purpose string) (*models.Challenge, error)

	UpdateChallenge(ctx context.Context, ch *models.Challenge) error
	DeleteChallenge(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists device-bound sessions and device-trust grants.
type SessionStore interface {
	CreateSession(ctx context.Context, s *models.Session) error
	SessionByToken(ctx context.Context, token string) (*models.Session, error)
	Sessions(ctx context.Context) ([]models.Session, error)

	// SaveDeviceTrust upserts the trust grant for its fingerprint.
	SaveDeviceTrust(ctx context.Context, t *models.DeviceTrust) error
	DeviceTrustByFingerprint(ctx context.Context, fingerprint string) (*models.DeviceTrust, error)
	DeviceTrusts(ctx context.Context) ([]models.DeviceTrust, error)

	// RevokeSession removes the session and the device-trust grant bound to
	// its fingerprint together, atomically.
	RevokeSession(ctx context.Context, token string) error
}

// CredentialStore persists salted password hashes. It backs the external
// identity-store boundary and is intentionally separate from UserStore.
type CredentialStore interface {
	CreateCredential(ctx context.Context, c *models.Credential) error
	CredentialByEmail(ctx context.Context, email string) (*models.Credential, error)
	UpdateCredential(ctx context.Context, c *models.Credential) error
}

// Store is the full persistence surface, implemented by every adapter.
type Store interface {
	UserStore
	ChallengeStore
	SessionStore
	CredentialStore
}
