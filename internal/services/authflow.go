package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
	"unicode"

	"github.com/example/bookbucks/internal/identity"
	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/store"
)

// FlowState is the current position of an auth flow.
type FlowState string

// Auth flow states.
const (
	StateCredentialsSubmitted FlowState = "CREDENTIALS_SUBMITTED"
	StateAwaitingOTP          FlowState = "AWAITING_OTP"
	StateAuthenticated        FlowState = "AUTHENTICATED"
	StateFailed               FlowState = "FAILED"
)

// AuthService builds auth flows from shared dependencies. Credential storage
// and verification are delegated to the identity store; this service owns
// only the challenge/session protocol around it.
type AuthService struct {
	challenges    *ChallengeService
	sessions      *SessionManager
	users         store.UserStore
	identities    identity.Store
	ledger        *LedgerService
	clock         func() time.Time
	signupBonus   int64
	referralBonus int64
}

// NewAuthService constructs an AuthService.
func NewAuthService(challenges *ChallengeService, sessions *SessionManager, users store.UserStore, identities identity.Store, ledger *LedgerService, clock func() time.Time, signupBonus, referralBonus int64) *AuthService {
	if clock == nil {
		clock = time.Now
	}
	return &AuthService{
		challenges:    challenges,
		sessions:      sessions,
		users:         users,
		identities:    identities,
		ledger:        ledger,
		clock:         clock,
		signupBonus:   signupBonus,
		referralBonus: referralBonus,
	}
}

// NewFlow starts a fresh auth flow.
func (s *AuthService) NewFlow() *AuthFlow {
	return &AuthFlow{svc: s, state: StateCredentialsSubmitted}
}

// AuthFlow is the signup/login state machine. Any presentation layer can
// drive it: submit credentials, handle ErrOTPRequired by collecting a code,
// resubmit, and read State() at any point.
type AuthFlow struct {
	svc   *AuthService
	state FlowState
}

// State returns the flow's current state.
func (f *AuthFlow) State() FlowState {
	return f.state
}

// SignupInput carries everything a signup submission may include. OTPCode is
// empty on the first submission.
type SignupInput struct {
	Name         string
	Email        string
	Password     string
	ReferralCode string
	OTPCode      string
	Fingerprint  string
}

// LoginInput carries a login submission.
type LoginInput struct {
	Email       string
	Password    string
	OTPCode     string
	Fingerprint string
}

// AuthResult is the outcome of a completed flow.
type AuthResult struct {
	User        *models.User
	Session     *models.Session
	DeviceTrust *models.DeviceTrust
}

// Signup drives the signup flow. Without an OTP code it issues a challenge
// and returns ErrOTPRequired; with a valid code it registers credentials,
// creates the profile (seeded per referral policy) and opens a session.
func (f *AuthFlow) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	if in.Name == "" || in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrValidation)
	}
	if err := checkPasswordPolicy(in.Password); err != nil {
		return nil, err
	}

	if _, err := f.svc.users.UserByEmail(ctx, in.Email); err == nil {
		return nil, fmt.Errorf("%w: email already registered", ErrValidation)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// Signup always confirms control of the email address.
	if in.OTPCode == "" {
		if _, err := f.svc.challenges.Issue(ctx, in.Email, models.PurposeSignup); err != nil {
			return nil, err
		}
		f.state = StateAwaitingOTP
		return nil, ErrOTPRequired
	}

	f.state = StateAwaitingOTP
	if err := f.verifyOTP(ctx, in.Email, models.PurposeSignup, in.OTPCode); err != nil {
		return nil, err
	}

	if err := f.svc.identities.Register(ctx, in.Email, in.Password); err != nil {
		f.state = StateFailed
		if errors.Is(err, identity.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("%w: email already registered", ErrValidation)
		}
		return nil, err
	}

	referralCode, err := generateReferralCode()
	if err != nil {
		f.state = StateFailed
		return nil, err
	}

	user := &models.User{
		Name:         in.Name,
		Email:        in.Email,
		ReferralCode: referralCode,
		Theme:        "light",
		JoinDate:     f.svc.clock(),
	}
	if err := f.svc.users.CreateUser(ctx, user); err != nil {
		f.state = StateFailed
		return nil, err
	}

	if in.ReferralCode != "" {
		if err := f.svc.applyReferral(ctx, user, in.ReferralCode); err != nil {
			f.state = StateFailed
			return nil, err
		}
	}

	return f.openSession(ctx, user, in.Fingerprint)
}

// Login drives the login flow. A device holding a valid trust grant skips the
// OTP; otherwise a login challenge is issued and ErrOTPRequired returned.
func (f *AuthFlow) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	if err := f.svc.identities.Verify(ctx, in.Email, in.Password); err != nil {
		return nil, err
	}

	user, err := f.svc.users.UserByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}

	trusted := f.svc.sessions.TrustedDevice(ctx, in.Fingerprint)
	if !trusted && in.OTPCode == "" {
		if _, err := f.svc.challenges.Issue(ctx, in.Email, models.PurposeLogin); err != nil {
			return nil, err
		}
		f.state = StateAwaitingOTP
		return nil, ErrOTPRequired
	}

	if in.OTPCode != "" {
		f.state = StateAwaitingOTP
		if err := f.verifyOTP(ctx, in.Email, models.PurposeLogin, in.OTPCode); err != nil {
			return nil, err
		}
	}

	return f.openSession(ctx, user, in.Fingerprint)
}

// verifyOTP runs challenge verification and applies the state rules: an
// exhausted attempt budget fails the whole flow, other failures keep it
// awaiting a code.
func (f *AuthFlow) verifyOTP(ctx context.Context, email, purpose, code string) error {
	err := f.svc.challenges.Verify(ctx, email, purpose, code)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrOTPTooManyAttempts) {
		f.state = StateFailed
	}
	return err
}

func (f *AuthFlow) openSession(ctx context.Context, user *models.User, fp string) (*AuthResult, error) {
	session, trust, err := f.svc.sessions.IssueSession(ctx, user.ID, fp)
	if err != nil {
		f.state = StateFailed
		return nil, err
	}

	// Reload so the result reflects any referral seeding.
	fresh, err := f.svc.users.UserByID(ctx, user.ID)
	if err != nil {
		f.state = StateFailed
		return nil, err
	}

	f.state = StateAuthenticated
	return &AuthResult{User: fresh, Session: session, DeviceTrust: trust}, nil
}

// applyReferral credits both sides of a referral: the referrer gets the
// per-referral bonus, the new account its signup bonus. An unknown code is
// ignored rather than blocking the signup.
func (s *AuthService) applyReferral(ctx context.Context, user *models.User, code string) error {
	referrer, err := s.users.UserByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}

	if err := s.ledger.CreditReferral(ctx, referrer.ID, s.referralBonus, fmt.Sprintf("Referral bonus for inviting %s", user.Name)); err != nil {
		return err
	}

	_, err = s.ledger.Append(ctx, user.ID, s.signupBonus, models.TxnKindBonus, "Referral signup bonus")
	return err
}

// Logout revokes the session and its device trust together.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	return s.sessions.Revoke(ctx, sessionToken)
}

func checkPasswordPolicy(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}

	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return fmt.Errorf("%w: password needs an uppercase letter, a lowercase letter and a digit", ErrValidation)
	}
	return nil
}

const referralAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func generateReferralCode() (string, error) {
	code := make([]byte, 6)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(referralAlphabet))))
		if err != nil {
			return "", err
		}
		code[i] = referralAlphabet[n.Int64()]
	}
	return string(code), nil
}
