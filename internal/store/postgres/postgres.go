// Package postgres implements store.Store on top of gorm.
package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

// Store implements store.Store backed by a gorm Postgres connection.
type Store struct {
	db *gorm.DB
}

// New constructs a Store.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ store.Store = (*Store)(nil)

// --- UserStore ---

func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Create(user).Error
}

func (s *Store) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&user).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

func (s *Store) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		return nil, mapErr(err)
	}
	return &user, nil
}

// MutateUser runs fn against the row locked FOR UPDATE so concurrent appends
// to the same ledger serialize; the balance update and the transaction insert
// commit together or not at all.
func (s *Store) MutateUser(ctx context.Context, id uuid.UUID, fn func(u *models.User) (*models.Transaction, error)) (*models.Transaction, error) {
	var result *models.Transaction

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&user, "id = ?", id).Error; err != nil {
			return mapErr(err)
		}

		txn, err := fn(&user)
		if err != nil {
			return err
		}

		if err := tx.Omit("Transactions").Save(&user).Error; err != nil {
			return err
		}

		if txn != nil {
			txn.UserID = id
			if err := tx.Create(txn).Error; err != nil {
				return err
			}
		}

		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txns []models.Transaction
	if err := query.Order("seq desc").Limit(limit).Offset(offset).Find(&txns).Error; err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// --- ChallengeStore ---

func (s *Store) ReplaceChallenge(ctx context.Context, ch *models.Challenge) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("identity = ? AND purpose = ?", ch.Identity, ch.Purpose).
			Delete(&models.Challenge{}).Error; err != nil {
			return err
		}
		return tx.Create(ch).Error
	})
}

func (s *Store) LatestChallenge(ctx context.Context, identity, purpose string) (*models.Challenge, error) {
	var ch models.Challenge
	err := s.db.WithContext(ctx).Where("identity = ? AND purpose = ?", identity, purpose).
		Order("created_at desc").
		First(&ch).Error
	if err != nil {
		return nil, mapErr(err)
	}
	return &ch, nil
}

func (s *Store) UpdateChallenge(ctx context.Context, ch *models.Challenge) error {
	return s.db.WithContext(ctx).Save(ch).Error
}

func (s *Store) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Delete(&models.Challenge{}, "id = ?", id).Error
}

// --- SessionStore ---

func (s *Store) CreateSession(ctx context.Context, session *models.Session) error {
	return s.db.WithContext(ctx).Create(session).Error
}

func (s *Store) SessionByToken(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	if err := s.db.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		return nil, mapErr(err)
	}
	return &session, nil
}

func (s *Store) Sessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Find(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (s *Store) SaveDeviceTrust(ctx context.Context, t *models.DeviceTrust) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "fingerprint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "expires_at", "updated_at"}),
	}).Create(t).Error
}

func (s *Store) DeviceTrustByFingerprint(ctx context.Context, fingerprint string) (*models.DeviceTrust, error) {
	var t models.DeviceTrust
	if err := s.db.WithContext(ctx).Where("fingerprint = ?", fingerprint).First(&t).Error; err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (s *Store) DeviceTrusts(ctx context.Context) ([]models.DeviceTrust, error) {
	var trusts []models.DeviceTrust
	if err := s.db.WithContext(ctx).Find(&trusts).Error; err != nil {
		return nil, err
	}
	return trusts, nil
}

func (s *Store) RevokeSession(ctx context.Context, token string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var session models.Session
		if err := tx.Where("token = ?", token).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Delete(&models.Session{}, "token = ?", token).Error; err != nil {
			return err
		}
		return tx.Delete(&models.DeviceTrust{}, "fingerprint = ?", session.BoundFingerprint).Error
	})
}

// --- CredentialStore ---

func (s *Store) CreateCredential(ctx context.Context, c *models.Credential) error {
	return s.db.WithContext(ctx).Create(c).Error
}

func (s *Store) CredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	var c models.Credential
	if err := s.db.WithContext(ctx).Where("lower(email) = lower(?)", email).First(&c).Error; err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

func (s *Store) UpdateCredential(ctx context.Context, c *models.Credential) error {
	return s.db.WithContext(ctx).Save(c).Error
}

func mapErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}
