package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/catalog"
	"github.com/example/bookbucks/internal/models"
)

// PageState is the position of a page's reward state machine.
type PageState string

// Page reward states.
const (
	PageIdle     PageState = "IDLE"
	PageTiming   PageState = "TIMING"
	PageEligible PageState = "ELIGIBLE"
	PageClaimed  PageState = "CLAIMED"
)

// ReadingPolicy holds the configured reward gates.
type ReadingPolicy struct {
	Timer           time.Duration
	PageReward      int64
	MinPointerMoves int
	MinFocusSeconds int
	MaxActivityGap  time.Duration
}

// pageSession is one user's position in one book. The deadline is a clock
// instant, not a countdown: state is derived by comparing against the
// injected clock, so tests run without real timers.
type pageSession struct {
	bookID       string
	page         int
	state        PageState
	deadline     time.Time
	pointerMoves int
	keystrokes   int
	focusSeconds int
	lastActivity time.Time
}

// ReadingService runs the per-page timed state machine that gates reward
// eligibility. Rewards flow through the ledger; the claim transition and the
// ledger append are linearized under the service lock so two concurrent
// claims cannot both credit.
type ReadingService struct {
	library *catalog.Library
	ledger  *LedgerService
	policy  ReadingPolicy
	clock   func() time.Time

	mu       sync.Mutex
	sessions map[uuid.UUID]*pageSession
}

// NewReadingService constructs a ReadingService.
func NewReadingService(library *catalog.Library, ledger *LedgerService, policy ReadingPolicy, clock func() time.Time) *ReadingService {
	if clock == nil {
		clock = time.Now
	}
	return &ReadingService{
		library:  library,
		ledger:   ledger,
		policy:   policy,
		clock:    clock,
		sessions: make(map[uuid.UUID]*pageSession),
	}
}

// PageView is a queryable snapshot for the presentation layer.
type PageView struct {
	BookID           string    `json:"book_id"`
	BookTitle        string    `json:"book_title"`
	Page             int       `json:"page"`
	TotalPages       int       `json:"total_pages"`
	State            PageState `json:"state"`
	RemainingSeconds int       `json:"remaining_seconds"`
	CanAdvance       bool      `json:"can_advance"`
}

// Open enters a book at page one in IDLE state, replacing any previous
// reading session the user had.
func (s *ReadingService) Open(userID uuid.UUID, bookID string) (*PageView, error) {
	book, err := s.library.Book(bookID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[userID] = &pageSession{bookID: bookID, page: 1, state: PageIdle}
	return s.viewLocked(s.sessions[userID], book), nil
}

// Start arms the page timer: deadline = now + configured duration, activity
// counters cleared, state TIMING.
func (s *ReadingService) Start(userID uuid.UUID) (*PageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, book, err := s.currentLocked(userID)
	if err != nil {
		return nil, err
	}
	if ps.state != PageIdle {
		return nil, fmt.Errorf("%w: timer already started for this page", ErrValidation)
	}

	now := s.clock()
	ps.state = PageTiming
	ps.deadline = now.Add(s.policy.Timer)
	ps.pointerMoves = 0
	ps.keystrokes = 0
	ps.focusSeconds = 0
	ps.lastActivity = now

	return s.viewLocked(ps, book), nil
}

// RecordActivity accumulates interaction signals. Signals only count while
// the page is TIMING or ELIGIBLE.
func (s *ReadingService) RecordActivity(userID uuid.UUID, pointerMoves, keystrokes, focusSeconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, _, err := s.currentLocked(userID)
	if err != nil {
		return err
	}

	s.refreshLocked(ps)
	if ps.state != PageTiming && ps.state != PageEligible {
		return nil
	}

	ps.pointerMoves += pointerMoves
	ps.keystrokes += keystrokes
	ps.focusSeconds += focusSeconds
	if pointerMoves > 0 || keystrokes > 0 {
		ps.lastActivity = s.clock()
	}
	return nil
}

// Tick observes the clock and returns the current view. The presentation
// layer calls it at 1 Hz; correctness does not depend on the cadence.
func (s *ReadingService) Tick(userID uuid.UUID) (*PageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, book, err := s.currentLocked(userID)
	if err != nil {
		return nil, err
	}
	s.refreshLocked(ps)
	return s.viewLocked(ps, book), nil
}

// Claim awards the page reward. Only an ELIGIBLE page can be claimed, the
// anti-automation heuristic must pass, and a page already CLAIMED no-ops so
// repeat calls credit nothing.
func (s *ReadingService) Claim(ctx context.Context, userID uuid.UUID) (*models.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, book, err := s.currentLocked(userID)
	if err != nil {
		return nil, err
	}
	s.refreshLocked(ps)

	if ps.state == PageClaimed {
		return nil, nil
	}
	if ps.state != PageEligible {
		return nil, fmt.Errorf("%w: reading timer has not finished", ErrValidation)
	}

	now := s.clock()
	if ps.pointerMoves < s.policy.MinPointerMoves ||
		ps.focusSeconds < s.policy.MinFocusSeconds ||
		now.Sub(ps.lastActivity) > s.policy.MaxActivityGap {
		return nil, ErrSuspiciousActivity
	}

	description := fmt.Sprintf("Reading page %d of %q", ps.page, book.Title)
	txn, err := s.ledger.Append(ctx, userID, s.policy.PageReward, models.TxnKindEarning, description)
	if err != nil {
		return nil, err
	}

	ps.state = PageClaimed
	return txn, nil
}

// Advance moves to the next page, which starts over in IDLE. Forward
// navigation is blocked until the current page is CLAIMED. Leaving the last
// page finishes the book.
func (s *ReadingService) Advance(ctx context.Context, userID uuid.UUID) (finished bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, book, err := s.currentLocked(userID)
	if err != nil {
		return false, err
	}
	s.refreshLocked(ps)

	if ps.state != PageClaimed {
		return false, fmt.Errorf("%w: claim the current page before moving on", ErrValidation)
	}

	if ps.page >= book.TotalPages {
		delete(s.sessions, userID)
		return true, s.ledger.CompleteBook(ctx, userID)
	}

	ps.page++
	ps.state = PageIdle
	ps.deadline = time.Time{}
	ps.pointerMoves = 0
	ps.keystrokes = 0
	ps.focusSeconds = 0
	return false, nil
}

// Previous moves back one page; the revisited page starts over in IDLE.
func (s *ReadingService) Previous(userID uuid.UUID) (*PageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ps, book, err := s.currentLocked(userID)
	if err != nil {
		return nil, err
	}

	if ps.page > 1 {
		ps.page--
		ps.state = PageIdle
		ps.deadline = time.Time{}
		ps.pointerMoves = 0
		ps.keystrokes = 0
		ps.focusSeconds = 0
	}
	return s.viewLocked(ps, book), nil
}

func (s *ReadingService) currentLocked(userID uuid.UUID) (*pageSession, *catalog.Book, error) {
	ps, ok := s.sessions[userID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: no reading session open", ErrValidation)
	}
	book, err := s.library.Book(ps.bookID)
	if err != nil {
		return nil, nil, err
	}
	return ps, book, nil
}

// refreshLocked derives ELIGIBLE from the deadline. time.Now values carry a
// monotonic reading, so the comparison tolerates wall-clock steps.
func (s *ReadingService) refreshLocked(ps *pageSession) {
	if ps.state == PageTiming && !s.clock().Before(ps.deadline) {
		ps.state = PageEligible
	}
}

func (s *ReadingService) viewLocked(ps *pageSession, book *catalog.Book) *PageView {
	remaining := 0
	switch ps.state {
	case PageIdle:
		remaining = int(s.policy.Timer / time.Second)
	case PageTiming:
		left := ps.deadline.Sub(s.clock())
		remaining = int((left + time.Second - 1) / time.Second)
		if remaining < 0 {
			remaining = 0
		}
	}

	return &PageView{
		BookID:           book.ID,
		BookTitle:        book.Title,
		Page:             ps.page,
		TotalPages:       book.TotalPages,
		State:            ps.state,
		RemainingSeconds: remaining,
		CanAdvance:       ps.state == PageClaimed,
	}
}
