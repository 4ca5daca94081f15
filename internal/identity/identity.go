// Package identity is the credential-verification boundary. The trust core
// never sees plaintext passwords beyond this package: storage and comparison
// use salted bcrypt hashes, standing in for an external identity provider.
package identity

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

var (
	// ErrInvalidCredentials indicates that the email or password was incorrect.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAlreadyRegistered indicates that the identity already has credentials.
	ErrAlreadyRegistered = errors.New("identity already registered")
)

// Store verifies and registers credentials for an identity.
type Store interface {
	Register(ctx context.Context, email, password string) error
	Verify(ctx context.Context, email, password string) error
	ChangePassword(ctx context.Context, email, newPassword string) error
}

// BcryptStore implements Store with bcrypt hashes persisted in a
// CredentialStore.
type BcryptStore struct {
	credentials store.CredentialStore
}

// NewBcryptStore constructs a BcryptStore.
func NewBcryptStore(credentials store.CredentialStore) *BcryptStore {
	return &BcryptStore{credentials: credentials}
}

var _ Store = (*BcryptStore)(nil)

// Register hashes and stores credentials for a new identity.
func (s *BcryptStore) Register(ctx context.Context, email, password string) error {
	if _, err := s.credentials.CredentialByEmail(ctx, email); err == nil {
		return ErrAlreadyRegistered
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.credentials.CreateCredential(ctx, &models.Credential{
		Email:        email,
		PasswordHash: string(hash),
	})
}

// Verify compares the password against the stored hash.
func (s *BcryptStore) Verify(ctx context.Context, email, password string) error {
	cred, err := s.credentials.CredentialByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		return err
	}

	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// ChangePassword replaces the stored hash for an existing identity.
func (s *BcryptStore) ChangePassword(ctx context.Context, email, newPassword string) error {
	cred, err := s.credentials.CredentialByEmail(ctx, email)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	cred.PasswordHash = string(hash)
	return s.credentials.UpdateCredential(ctx, cred)
}
