package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

func TestUserRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := New()

	user := &models.User{Name: "Ada", Email: "a@x.com", ReferralCode: "ADA123"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Fatal("create did not assign an ID")
	}

	byEmail, err := db.UserByEmail(ctx, "A@X.COM")
	if err != nil {
		t.Fatalf("lookup by email (case-insensitive): %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatal("email lookup returned wrong user")
	}

	byCode, err := db.UserByReferralCode(ctx, "ADA123")
	if err != nil {
		t.Fatalf("lookup by referral code: %v", err)
	}
	if byCode.ID != user.ID {
		t.Fatal("referral lookup returned wrong user")
	}

	if _, err := db.UserByEmail(ctx, "nobody@x.com"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMutateUser_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	db := New()
	user := &models.User{Name: "Ada", Email: "a@x.com"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	boom := errors.New("boom")
	_, err := db.MutateUser(ctx, user.ID, func(u *models.User) (*models.Transaction, error) {
		u.Balance = 9999
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	unchanged, _ := db.UserByID(ctx, user.ID)
	if unchanged.Balance != 0 {
		t.Fatalf("failed mutation leaked: balance %d", unchanged.Balance)
	}
}

func TestTransactions_OrderAndPagination(t *testing.T) {
	ctx := context.Background()
	db := New()
	user := &models.User{Name: "Ada", Email: "a@x.com"}
	if err := db.CreateUser(ctx, user); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 1; i <= 5; i++ {
		_, err := db.MutateUser(ctx, user.ID, func(u *models.User) (*models.Transaction, error) {
			u.LedgerSeq++
			u.Balance += 100
			return &models.Transaction{Seq: u.LedgerSeq, Kind: models.TxnKindEarning, Amount: 100, OccurredAt: time.Now()}, nil
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	page, total, err := db.Transactions(ctx, user.ID, 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 5 || len(page) != 2 {
		t.Fatalf("total %d len %d, want 5/2", total, len(page))
	}
	if page[0].Seq != 5 || page[1].Seq != 4 {
		t.Fatalf("not most-recent-first: seq %d, %d", page[0].Seq, page[1].Seq)
	}

	tail, _, err := db.Transactions(ctx, user.ID, 10, 4)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(tail) != 1 || tail[0].Seq != 1 {
		t.Fatalf("offset page wrong: %+v", tail)
	}
}

func TestReplaceChallenge_SupersedesSamePurposeOnly(t *testing.T) {
	ctx := context.Background()
	db := New()

	login := &models.Challenge{Identity: "a@x.com", Purpose: models.PurposeLogin, Code: "111111"}
	if err := db.ReplaceChallenge(ctx, login); err != nil {
		t.Fatalf("replace: %v", err)
	}
	stepup := &models.Challenge{Identity: "a@x.com", Purpose: models.PurposeStepUp, Code: "222222"}
	if err := db.ReplaceChallenge(ctx, stepup); err != nil {
		t.Fatalf("replace: %v", err)
	}
	replacement := &models.Challenge{Identity: "a@x.com", Purpose: models.PurposeLogin, Code: "333333"}
	if err := db.ReplaceChallenge(ctx, replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}

	latest, err := db.LatestChallenge(ctx, "a@x.com", models.PurposeLogin)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Code != "333333" {
		t.Fatalf("latest code %q, want the re-issued login challenge", latest.Code)
	}

	// The stepup challenge was untouched by the login replacement.
	stepupLatest, err := db.LatestChallenge(ctx, "a@x.com", models.PurposeStepUp)
	if err != nil {
		t.Fatalf("latest stepup: %v", err)
	}
	if stepupLatest.Code != "222222" {
		t.Fatalf("stepup code %q, want the original", stepupLatest.Code)
	}

	// The original login challenge is gone, not merely shadowed.
	if err := db.DeleteChallenge(ctx, replacement.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.LatestChallenge(ctx, "a@x.com", models.PurposeLogin); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("superseded login challenge resurfaced: %v", err)
	}
}

func TestRevokeSession_RemovesTrust(t *testing.T) {
	ctx := context.Background()
	db := New()
	userID := uuid.New()

	session := &models.Session{Token: "tok", UserID: userID, BoundFingerprint: "fp-1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	trust := &models.DeviceTrust{Fingerprint: "fp-1", UserID: userID, ExpiresAt: time.Now().Add(time.Hour)}
	if err := db.SaveDeviceTrust(ctx, trust); err != nil {
		t.Fatalf("save trust: %v", err)
	}

	if err := db.RevokeSession(ctx, "tok"); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	if _, err := db.SessionByToken(ctx, "tok"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("session survived revoke: %v", err)
	}
	if _, err := db.DeviceTrustByFingerprint(ctx, "fp-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("trust survived revoke: %v", err)
	}

	// Revoking an unknown token is a no-op.
	if err := db.RevokeSession(ctx, "missing"); err != nil {
		t.Fatalf("revoke missing: %v", err)
	}
}

func TestSaveDeviceTrust_Upserts(t *testing.T) {
	ctx := context.Background()
	db := New()

	first := &models.DeviceTrust{Fingerprint: "fp-1", UserID: uuid.New(), ExpiresAt: time.Now()}
	if err := db.SaveDeviceTrust(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	later := time.Now().Add(time.Hour)
	second := &models.DeviceTrust{Fingerprint: "fp-1", UserID: first.UserID, ExpiresAt: later}
	if err := db.SaveDeviceTrust(ctx, second); err != nil {
		t.Fatalf("re-save: %v", err)
	}

	trusts, err := db.DeviceTrusts(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(trusts) != 1 {
		t.Fatalf("upsert duplicated trust: %d rows", len(trusts))
	}
	if !trusts[0].ExpiresAt.Equal(later) {
		t.Fatal("upsert did not refresh expiry")
	}
}
