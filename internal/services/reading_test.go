package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/catalog"
	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store/memory"
)

func newTestReadingService(clock *fakeClock) (*ReadingService, *memory.DB) {
	db := memory.New()
	ledger := NewLedgerService(db, clock.Now)
	policy := ReadingPolicy{
		Timer:           45 * time.Second,
		PageReward:      500,
		MinPointerMoves: 5,
		MinFocusSeconds: 30,
		MaxActivityGap:  10 * time.Second,
	}
	return NewReadingService(catalog.NewLibrary(), ledger, policy, clock.Now), db
}

// readNaturally simulates a human finishing the timer with healthy signals.
func readNaturally(t *testing.T, svc *ReadingService, clock *fakeClock, userID uuid.UUID) {
	t.Helper()

	if _, err := svc.Start(userID); err != nil {
		t.Fatalf("start: %v", err)
	}
	for i := 0; i < 45; i++ {
		clock.Advance(time.Second)
		if err := svc.RecordActivity(userID, 2, 0, 1); err != nil {
			t.Fatalf("activity: %v", err)
		}
	}
}

func TestReading_TimerGatesEligibility(t *testing.T) {
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	view, err := svc.Start(user.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.State != PageTiming || view.RemainingSeconds != 45 {
		t.Fatalf("after start: state %s remaining %d", view.State, view.RemainingSeconds)
	}

	clock.Advance(30 * time.Second)
	view, _ = svc.Tick(user.ID)
	if view.State != PageTiming || view.RemainingSeconds != 15 {
		t.Fatalf("mid-timer: state %s remaining %d", view.State, view.RemainingSeconds)
	}

	clock.Advance(15 * time.Second)
	view, _ = svc.Tick(user.ID)
	if view.State != PageEligible || view.RemainingSeconds != 0 {
		t.Fatalf("at deadline: state %s remaining %d", view.State, view.RemainingSeconds)
	}
}

func TestReading_ClaimBeforeTimerRejected(t *testing.T) {
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Start(user.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	clock.Advance(44 * time.Second)
	if _, err := svc.Claim(context.Background(), user.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation before timer, got %v", err)
	}

	updated, _ := db.UserByID(context.Background(), user.ID)
	if updated.Balance != 0 {
		t.Fatalf("balance mutated by rejected claim: %d", updated.Balance)
	}
}

func TestReading_SuspiciousActivityRejected(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.Start(user.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	// Timer runs out with zero recorded pointer movement.
	clock.Advance(45 * time.Second)

	if _, err := svc.Claim(ctx, user.ID); !errors.Is(err, ErrSuspiciousActivity) {
		t.Fatalf("expected ErrSuspiciousActivity, got %v", err)
	}

	updated, _ := db.UserByID(ctx, user.ID)
	if updated.Balance != 0 {
		t.Fatalf("balance changed on rejected claim: %d", updated.Balance)
	}

	// The page stays eligible: genuine interaction can still earn it.
	view, _ := svc.Tick(user.ID)
	if view.State != PageEligible {
		t.Fatalf("state %s after rejection, want ELIGIBLE", view.State)
	}
}

func TestReading_StaleActivityRejected(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	readNaturally(t, svc, clock, user.ID)

	// Healthy signals, but the reader walked away before claiming.
	clock.Advance(11 * time.Second)

	if _, err := svc.Claim(ctx, user.ID); !errors.Is(err, ErrSuspiciousActivity) {
		t.Fatalf("expected ErrSuspiciousActivity for stale activity, got %v", err)
	}
}

func TestReading_ClaimCreditsExactlyOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	readNaturally(t, svc, clock, user.ID)

	txn, err := svc.Claim(ctx, user.ID)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if txn == nil || txn.Amount != 500 || txn.Kind != models.TxnKindEarning {
		t.Fatalf("unexpected transaction: %+v", txn)
	}

	// Second claim is an idempotent no-op.
	again, err := svc.Claim(ctx, user.ID)
	if err != nil {
		t.Fatalf("repeat claim: %v", err)
	}
	if again != nil {
		t.Fatalf("repeat claim credited again: %+v", again)
	}

	updated, _ := db.UserByID(ctx, user.ID)
	if updated.Balance != 500 {
		t.Fatalf("balance %d, want 500", updated.Balance)
	}
	if updated.PagesRead != 1 {
		t.Fatalf("pagesRead %d, want 1", updated.PagesRead)
	}
	checkLedgerInvariant(t, db, user.ID)
}

func TestReading_ConcurrentClaimsCreditOnce(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	readNaturally(t, svc, clock, user.ID)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Claim(ctx, user.ID); err != nil {
				t.Errorf("claim: %v", err)
			}
		}()
	}
	wg.Wait()

	updated, _ := db.UserByID(ctx, user.ID)
	if updated.Balance != 500 {
		t.Fatalf("concurrent claims credited %d, want 500", updated.Balance)
	}
	checkLedgerInvariant(t, db, user.ID)
}

func TestReading_AdvanceRequiresClaim(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	readNaturally(t, svc, clock, user.ID)

	if _, err := svc.Advance(ctx, user.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation before claim, got %v", err)
	}

	if _, err := svc.Claim(ctx, user.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}

	finished, err := svc.Advance(ctx, user.ID)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}
	if finished {
		t.Fatal("finished after page 1 of 15")
	}

	// The next page starts over in IDLE.
	view, _ := svc.Tick(user.ID)
	if view.Page != 2 || view.State != PageIdle {
		t.Fatalf("page %d state %s, want 2/IDLE", view.Page, view.State)
	}
}

func TestReading_PreviousResetsPage(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	if _, err := svc.Open(user.ID, "1"); err != nil {
		t.Fatalf("open: %v", err)
	}
	readNaturally(t, svc, clock, user.ID)
	if _, err := svc.Claim(ctx, user.ID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := svc.Advance(ctx, user.ID); err != nil {
		t.Fatalf("advance: %v", err)
	}

	view, err := svc.Previous(user.ID)
	if err != nil {
		t.Fatalf("previous: %v", err)
	}
	if view.Page != 1 || view.State != PageIdle {
		t.Fatalf("page %d state %s, want 1/IDLE", view.Page, view.State)
	}

	// Revisiting does not remember the earlier claim; the timer must run
	// again before another (separate) claim.
	if _, err := svc.Claim(ctx, user.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation on idle page, got %v", err)
	}
}

func TestReading_FinishBook(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	svc, db := newTestReadingService(clock)
	user := createTestUser(t, db, 0)

	// Book 3 is the shortest seeded title.
	if _, err := svc.Open(user.ID, "3"); err != nil {
		t.Fatalf("open: %v", err)
	}

	book, _ := catalog.NewLibrary().Book("3")
	for page := 1; page <= book.TotalPages; page++ {
		readNaturally(t, svc, clock, user.ID)
		if _, err := svc.Claim(ctx, user.ID); err != nil {
			t.Fatalf("claim page %d: %v", page, err)
		}
		finished, err := svc.Advance(ctx, user.ID)
		if err != nil {
			t.Fatalf("advance page %d: %v", page, err)
		}
		if finished != (page == book.TotalPages) {
			t.Fatalf("finished=%v at page %d of %d", finished, page, book.TotalPages)
		}
	}

	updated, _ := db.UserByID(ctx, user.ID)
	if updated.BooksRead != 1 {
		t.Fatalf("booksRead %d, want 1", updated.BooksRead)
	}
	if updated.Balance != int64(book.TotalPages)*500 {
		t.Fatalf("balance %d, want %d", updated.Balance, int64(book.TotalPages)*500)
	}
	checkLedgerInvariant(t, db, user.ID)

	// The session is closed after finishing.
	if _, err := svc.Tick(user.ID); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation after finish, got %v", err)
	}
}

func TestReading_UnknownBook(t *testing.T) {
	clock := newFakeClock()
	svc, _ := newTestReadingService(clock)

	if _, err := svc.Open(uuid.New(), "404"); !errors.Is(err, catalog.ErrBookNotFound) {
		t.Fatalf("expected ErrBookNotFound, got %v", err)
	}
}
