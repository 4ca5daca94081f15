package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/store/memory"
)

func newTestSessionManager(clock *fakeClock) (*SessionManager, *memory.DB) {
	db := memory.New()
	return NewSessionManager(db, 7*24*time.Hour, 30*24*time.Hour, clock.Now), db
}

func TestSession_IssueAndValidate(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mgr, _ := newTestSessionManager(clock)
	userID := uuid.New()

	session, trust, err := mgr.IssueSession(ctx, userID, "fp-1")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if session.BoundFingerprint != "fp-1" {
		t.Fatalf("session bound to %q, want fp-1", session.BoundFingerprint)
	}
	if trust.Fingerprint != "fp-1" {
		t.Fatalf("trust bound to %q, want fp-1", trust.Fingerprint)
	}

	got, err := mgr.Validate(ctx, session.Token, "fp-1")
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != userID {
		t.Fatalf("validate returned user %s, want %s", got, userID)
	}
}

func TestSession_FingerprintMismatch(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mgr, _ := newTestSessionManager(clock)

	session, _, err := mgr.IssueSession(ctx, uuid.New(), "fp-1")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	if _, err := mgr.Validate(ctx, session.Token, "fp-other"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid on fingerprint mismatch, got %v", err)
	}
}

func TestSession_Expiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mgr, _ := newTestSessionManager(clock)

	session, _, err := mgr.IssueSession(ctx, uuid.New(), "fp-1")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	clock.Advance(7*24*time.Hour + time.Second)

	if _, err := mgr.Validate(ctx, session.Token, "fp-1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after expiry, got %v", err)
	}
}

func TestSession_UnknownToken(t *testing.T) {
	clock := newFakeClock()
	mgr, _ := newTestSessionManager(clock)

	if _, err := mgr.Validate(context.Background(), "no-such-token", "fp-1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid for unknown token, got %v", err)
	}
}

func TestSession_RevokeClearsTrustToo(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mgr, _ := newTestSessionManager(clock)

	session, _, err := mgr.IssueSession(ctx, uuid.New(), "fp-1")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}
	if !mgr.TrustedDevice(ctx, "fp-1") {
		t.Fatal("device should be trusted after issuance")
	}

	if err := mgr.Revoke(ctx, session.Token); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := mgr.Validate(ctx, session.Token, "fp-1"); !errors.Is(err, ErrSessionInvalid) {
		t.Fatalf("expected ErrSessionInvalid after revoke, got %v", err)
	}
	if mgr.TrustedDevice(ctx, "fp-1") {
		t.Fatal("device trust should be cleared with the session")
	}
}

func TestSession_TrustExpiry(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mgr, _ := newTestSessionManager(clock)

	if _, _, err := mgr.IssueSession(ctx, uuid.New(), "fp-1"); err != nil {
		t.Fatalf("issue session: %v", err)
	}

	clock.Advance(30*24*time.Hour + time.Second)

	if mgr.TrustedDevice(ctx, "fp-1") {
		t.Fatal("device trust should expire")
	}
}

func TestSession_HydrateIdempotent(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	mgr, db := newTestSessionManager(clock)

	session, _, err := mgr.IssueSession(ctx, uuid.New(), "fp-1")
	if err != nil {
		t.Fatalf("issue session: %v", err)
	}

	// A fresh manager over the same store simulates process restart.
	restarted := NewSessionManager(db, 7*24*time.Hour, 30*24*time.Hour, clock.Now)
	if err := restarted.Hydrate(ctx); err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if err := restarted.Hydrate(ctx); err != nil {
		t.Fatalf("second hydrate: %v", err)
	}

	if _, err := restarted.Validate(ctx, session.Token, "fp-1"); err != nil {
		t.Fatalf("validate after hydrate: %v", err)
	}
	if !restarted.TrustedDevice(ctx, "fp-1") {
		t.Fatal("device trust lost across hydrate")
	}

	sessions, err := db.Sessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("hydrate duplicated persisted sessions: %d rows", len(sessions))
	}
}
