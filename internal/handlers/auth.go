package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bookbucks/internal/config"
	"github.com/example/bookbucks/internal/fingerprint"
	"github.com/example/bookbucks/internal/middleware"
	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/services"
	"github.com/example/bookbucks/internal/utils"
)

// DeviceTrustCookie carries the long-lived device-trust token.
const DeviceTrustCookie = "bookbucks_device"

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth        *services.AuthService
	fingerprint *fingerprint.Collector
	cfg         *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, fp *fingerprint.Collector, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, fingerprint: fp, cfg: cfg}
}

type signupRequest struct {
	Name         string              `json:"name"`
	Email        string              `json:"email"`
	Password     string              `json:"password"`
	ReferralCode string              `json:"referral_code"`
	OTPCode      string              `json:"otp_code"`
	Signals      fingerprint.Signals `json:"signals"`
}

// Signup creates a new account. The first submission issues an OTP and
// returns 202; resubmitting with the code completes the flow.
func (h *AuthHandler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	fp := h.fingerprint.Collect(req.Signals)
	flow := h.auth.NewFlow()

	result, err := flow.Signup(c.Context(), services.SignupInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		ReferralCode: req.ReferralCode,
		OTPCode:      req.OTPCode,
		Fingerprint:  fp,
	})
	if err != nil {
		if errors.Is(err, services.ErrOTPRequired) {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"success":      true,
				"otp_required": true,
				"message":      "verification code sent to your email",
			})
		}
		return mapServiceError(err)
	}

	return h.respondAuthenticated(c, result, fp, fiber.StatusCreated)
}

type loginRequest struct {
	Email    string              `json:"email"`
	Password string              `json:"password"`
	OTPCode  string              `json:"otp_code"`
	Signals  fingerprint.Signals `json:"signals"`
}

// Login authenticates an existing user. Recognized devices skip the OTP.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	fp := h.fingerprint.Collect(req.Signals)
	flow := h.auth.NewFlow()

	result, err := flow.Login(c.Context(), services.LoginInput{
		Email:       req.Email,
		Password:    req.Password,
		OTPCode:     req.OTPCode,
		Fingerprint: fp,
	})
	if err != nil {
		if errors.Is(err, services.ErrOTPRequired) {
			return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
				"success":      true,
				"otp_required": true,
				"message":      "verification code sent to your email",
			})
		}
		return mapServiceError(err)
	}

	return h.respondAuthenticated(c, result, fp, fiber.StatusOK)
}

// Logout revokes the session and clears both cookies.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	token, ok := middleware.GetSessionToken(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.auth.Logout(c.Context(), token); err != nil {
		return mapServiceError(err)
	}

	expireCookie(c, middleware.SessionCookie)
	expireCookie(c, DeviceTrustCookie)

	return c.JSON(fiber.Map{"success": true})
}

func (h *AuthHandler) respondAuthenticated(c *fiber.Ctx, result *services.AuthResult, fp string, status int) error {
	bearer, err := utils.GenerateToken(h.cfg.JWTSecret, result.User.ID, result.Session.Token, h.cfg.TokenExpires)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	setSecureCookie(c, middleware.SessionCookie, result.Session.Token, result.Session.ExpiresAt)
	setSecureCookie(c, DeviceTrustCookie, result.DeviceTrust.Fingerprint, result.DeviceTrust.ExpiresAt)

	return c.Status(status).JSON(fiber.Map{
		"success":     true,
		"user":        userPayload(result.User),
		"token":       bearer,
		"fingerprint": fp,
	})
}

func userPayload(u *models.User) fiber.Map {
	return fiber.Map{
		"id":                u.ID,
		"name":              u.Name,
		"email":             u.Email,
		"balance":           u.Balance,
		"total_earned":      u.TotalEarned,
		"referrals":         u.Referrals,
		"referral_earnings": u.ReferralEarnings,
		"referral_code":     u.ReferralCode,
		"books_read":        u.BooksRead,
		"pages_read":        u.PagesRead,
		"theme":             u.Theme,
		"join_date":         u.JoinDate,
	}
}

func setSecureCookie(c *fiber.Ctx, name, value string, expires time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Expires:  expires,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func expireCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}
