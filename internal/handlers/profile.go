package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/bookbucks/internal/middleware"
	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/services"
	"github.com/example/bookbucks/internal/store"
	"github.com/example/bookbucks/internal/utils"
)

// ProfileHandler manages user profile endpoints.
type ProfileHandler struct {
	users  store.UserStore
	ledger *services.LedgerService
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(users store.UserStore, ledger *services.LedgerService) *ProfileHandler {
	return &ProfileHandler{users: users, ledger: ledger}
}

// GetProfile returns the authenticated user's profile.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.users.UserByID(c.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    userPayload(user),
	})
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Theme string `json:"theme"`
}

// UpdateProfile updates mutable profile fields.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Theme != "" && req.Theme != "light" && req.Theme != "dark" {
		return fiber.NewError(fiber.StatusBadRequest, "theme must be light or dark")
	}

	// The edit runs under the same per-user exclusion as ledger appends, so a
	// concurrent claim or withdrawal can never be overwritten by stale state.
	var updated models.User
	_, err := h.users.MutateUser(c.Context(), userID, func(u *models.User) (*models.Transaction, error) {
		if req.Name != "" {
			u.Name = req.Name
		}
		if req.Theme != "" {
			u.Theme = req.Theme
		}
		updated = *u
		return nil, nil
	})
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    userPayload(&updated),
	})
}

// ListTransactions returns the user's ledger, most recent first, paginated.
func (h *ProfileHandler) ListTransactions(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pagination := utils.ParsePagination(c)
	txns, total, err := h.ledger.History(c.Context(), userID, pagination.Limit, pagination.Offset)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    txns,
		"meta": fiber.Map{
			"page":  pagination.Page,
			"limit": pagination.Limit,
			"total": total,
		},
	})
}

// GetReferrals returns the user's referral summary.
func (h *ProfileHandler) GetReferrals(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.users.UserByID(c.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"referral_code":     user.ReferralCode,
			"referrals":         user.Referrals,
			"referral_earnings": user.ReferralEarnings,
		},
	})
}
