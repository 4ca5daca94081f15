// Package memory implements an in-memory store for development and testing.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

// DB implements store.Store backed by process memory. A single mutex guards
// all state, so MutateUser callbacks are trivially linearized.
type DB struct {
	mu           sync.Mutex
	users        map[uuid.UUID]*models.User
	transactions map[uuid.UUID][]models.Transaction
	challenges   []*models.Challenge
	sessions     map[string]*models.Session
	trusts       map[string]*models.DeviceTrust
	credentials  map[string]*models.Credential
}

// New creates an empty in-memory store.
func New() *DB {
	return &DB{
		users:        make(map[uuid.UUID]*models.User),
		transactions: make(map[uuid.UUID][]models.Transaction),
		sessions:     make(map[string]*models.Session),
		trusts:       make(map[string]*models.DeviceTrust),
		credentials:  make(map[string]*models.Credential),
	}
}

var _ store.Store = (*DB)(nil)

// --- UserStore ---

func (db *DB) CreateUser(ctx context.Context, user *models.User) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	clone := *user
	clone.Transactions = nil
	db.users[user.ID] = &clone
	return nil
}

func (db *DB) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.userLocked(id)
}

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (db *DB) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ReferralCode == code {
			clone := *u
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (db *DB) MutateUser(ctx context.Context, id uuid.UUID, fn func(u *models.User) (*models.Transaction, error)) (*models.Transaction, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	current, err := db.userLocked(id)
	if err != nil {
		return nil, err
	}

	// fn works on a copy; nothing is committed unless it succeeds.
	txn, err := fn(current)
	if err != nil {
		return nil, err
	}

	current.Transactions = nil
	db.users[id] = current

	if txn != nil {
		if txn.ID == uuid.Nil {
			txn.ID = uuid.New()
		}
		txn.UserID = id
		db.transactions[id] = append(db.transactions[id], *txn)
	}
	return txn, nil
}

func (db *DB) Transactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Transaction, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	all := append([]models.Transaction(nil), db.transactions[userID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].Seq > all[j].Seq })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (db *DB) userLocked(id uuid.UUID) (*models.User, error) {
	u, ok := db.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

// --- ChallengeStore ---

func (db *DB) ReplaceChallenge(ctx context.Context, ch *models.Challenge) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	kept := db.challenges[:0]
	for _, existing := range db.challenges {
		if existing.Identity == ch.Identity && existing.Purpose == ch.Purpose {
			continue
		}
		kept = append(kept, existing)
	}
	db.challenges = kept

	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	clone := *ch
	db.challenges = append(db.challenges, &clone)
	return nil
}

func (db *DB) LatestChallenge(ctx context.Context, identity, purpose string) (*models.Challenge, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	// Challenges are appended in issue order; the last match is the latest.
	for i := len(db.challenges) - 1; i >= 0; i-- {
		if db.challenges[i].Identity == identity && db.challenges[i].Purpose == purpose {
			clone := *db.challenges[i]
			return &clone, nil
		}
	}
	return nil, store.ErrNotFound
}

func (db *DB) UpdateChallenge(ctx context.Context, ch *models.Challenge) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, existing := range db.challenges {
		if existing.ID == ch.ID {
			clone := *ch
			db.challenges[i] = &clone
			return nil
		}
	}
	return store.ErrNotFound
}

func (db *DB) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	for i, existing := range db.challenges {
		if existing.ID == id {
			db.challenges = append(db.challenges[:i], db.challenges[i+1:]...)
			return nil
		}
	}
	return nil
}

// --- SessionStore ---

func (db *DB) CreateSession(ctx context.Context, s *models.Session) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	clone := *s
	db.sessions[s.Token] = &clone
	return nil
}

func (db *DB) SessionByToken(ctx context.Context, token string) (*models.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[token]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *s
	return &clone, nil
}

func (db *DB) Sessions(ctx context.Context) ([]models.Session, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]models.Session, 0, len(db.sessions))
	for _, s := range db.sessions {
		out = append(out, *s)
	}
	return out, nil
}

func (db *DB) SaveDeviceTrust(ctx context.Context, t *models.DeviceTrust) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	clone := *t
	db.trusts[t.Fingerprint] = &clone
	return nil
}

func (db *DB) DeviceTrustByFingerprint(ctx context.Context, fingerprint string) (*models.DeviceTrust, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.trusts[fingerprint]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (db *DB) DeviceTrusts(ctx context.Context) ([]models.DeviceTrust, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]models.DeviceTrust, 0, len(db.trusts))
	for _, t := range db.trusts {
		out = append(out, *t)
	}
	return out, nil
}

func (db *DB) RevokeSession(ctx context.Context, token string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[token]
	if !ok {
		return nil
	}
	delete(db.sessions, token)
	delete(db.trusts, s.BoundFingerprint)
	return nil
}

// --- CredentialStore ---

func (db *DB) CreateCredential(ctx context.Context, c *models.Credential) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	clone := *c
	db.credentials[strings.ToLower(c.Email)] = &clone
	return nil
}

func (db *DB) CredentialByEmail(ctx context.Context, email string) (*models.Credential, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	c, ok := db.credentials[strings.ToLower(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (db *DB) UpdateCredential(ctx context.Context, c *models.Credential) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	key := strings.ToLower(c.Email)
	if _, ok := db.credentials[key]; !ok {
		return store.ErrNotFound
	}
	clone := *c
	db.credentials[key] = &clone
	return nil
}
