package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

// SessionManager issues and validates device-bound sessions and the
// longer-lived device-trust grants that let a recognized device skip OTP.
// Tokens are opaque random values checked by presence and equality; state is
// persisted in the store and mirrored in an in-process cache.
type SessionManager struct {
	sessions       store.SessionStore
	sessionTTL     time.Duration
	deviceTrustTTL time.Duration
	clock          func() time.Time

	mu        sync.RWMutex
	byToken   map[string]models.Session
	trustByFP map[string]models.DeviceTrust
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(sessions store.SessionStore, sessionTTL, deviceTrustTTL time.Duration, clock func() time.Time) *SessionManager {
	if clock == nil {
		clock = time.Now
	}
	return &SessionManager{
		sessions:       sessions,
		sessionTTL:     sessionTTL,
		deviceTrustTTL: deviceTrustTTL,
		clock:          clock,
		byToken:        make(map[string]models.Session),
		trustByFP:      make(map[string]models.DeviceTrust),
	}
}

// Hydrate primes the cache from persisted rows. It is idempotent: re-reading
// the same rows neither duplicates nor corrupts state, so it is safe to call
// again after reconnects.
func (m *SessionManager) Hydrate(ctx context.Context) error {
	sessions, err := m.sessions.Sessions(ctx)
	if err != nil {
		return fmt.Errorf("hydrate sessions: %w", err)
	}
	trusts, err := m.sessions.DeviceTrusts(ctx)
	if err != nil {
		return fmt.Errorf("hydrate device trusts: %w", err)
	}

	now := m.clock()
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range sessions {
		if now.Before(s.ExpiresAt) {
			m.byToken[s.Token] = s
		}
	}
	for _, t := range trusts {
		if now.Before(t.ExpiresAt) {
			m.trustByFP[t.Fingerprint] = t
		}
	}
	return nil
}

// IssueSession mints a session token bound to the fingerprint plus a
// device-trust grant for the same fingerprint.
func (m *SessionManager) IssueSession(ctx context.Context, userID uuid.UUID, fp string) (*models.Session, *models.DeviceTrust, error) {
	token, err := generateToken()
	if err != nil {
		return nil, nil, fmt.Errorf("generate session token: %w", err)
	}

	now := m.clock()
	session := &models.Session{
		Token:            token,
		UserID:           userID,
		BoundFingerprint: fp,
		IssuedAt:         now,
		ExpiresAt:        now.Add(m.sessionTTL),
	}
	trust := &models.DeviceTrust{
		Fingerprint: fp,
		UserID:      userID,
		ExpiresAt:   now.Add(m.deviceTrustTTL),
	}

	if err := m.sessions.CreateSession(ctx, session); err != nil {
		return nil, nil, err
	}
	if err := m.sessions.SaveDeviceTrust(ctx, trust); err != nil {
		return nil, nil, err
	}

	m.mu.Lock()
	m.byToken[token] = *session
	m.trustByFP[fp] = *trust
	m.mu.Unlock()

	return session, trust, nil
}

// Validate reports whether the token names a live session bound to the
// presented fingerprint, and if so which user owns it.
func (m *SessionManager) Validate(ctx context.Context, token, fp string) (uuid.UUID, error) {
	session, ok := m.cachedSession(token)
	if !ok {
		stored, err := m.sessions.SessionByToken(ctx, token)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return uuid.Nil, ErrSessionInvalid
			}
			return uuid.Nil, err
		}
		session = *stored
		m.mu.Lock()
		m.byToken[token] = session
		m.mu.Unlock()
	}

	if !m.clock().Before(session.ExpiresAt) {
		return uuid.Nil, ErrSessionInvalid
	}
	if session.BoundFingerprint != fp {
		return uuid.Nil, ErrSessionInvalid
	}
	return session.UserID, nil
}

// TrustedDevice reports whether the fingerprint carries an unexpired
// device-trust grant.
func (m *SessionManager) TrustedDevice(ctx context.Context, fp string) bool {
	m.mu.RLock()
	trust, ok := m.trustByFP[fp]
	m.mu.RUnlock()

	if !ok {
		stored, err := m.sessions.DeviceTrustByFingerprint(ctx, fp)
		if err != nil {
			return false
		}
		trust = *stored
		m.mu.Lock()
		m.trustByFP[fp] = trust
		m.mu.Unlock()
	}

	return m.clock().Before(trust.ExpiresAt)
}

// Revoke clears the session and its device-trust grant together.
func (m *SessionManager) Revoke(ctx context.Context, token string) error {
	session, ok := m.cachedSession(token)
	if !ok {
		if stored, err := m.sessions.SessionByToken(ctx, token); err == nil {
			session = *stored
		}
	}

	if err := m.sessions.RevokeSession(ctx, token); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.byToken, token)
	if session.BoundFingerprint != "" {
		delete(m.trustByFP, session.BoundFingerprint)
	}
	m.mu.Unlock()
	return nil
}

func (m *SessionManager) cachedSession(token string) (models.Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.byToken[token]
	return s, ok
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
