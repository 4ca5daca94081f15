package handlers

import (
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bookbucks/internal/config"
	"github.com/example/bookbucks/internal/middleware"
	"github.com/example/bookbucks/internal/models"
	"github.com/example/bookbucks/internal/payments"
	"github.com/example/bookbucks/internal/services"
	"github.com/example/bookbucks/internal/store"
)

// WalletHandler manages withdrawal endpoints. Withdrawals are a sensitive
// operation: every request is step-up challenged regardless of device trust.
type WalletHandler struct {
	users  store.UserStore
	ledger *services.LedgerService
	stepUp *services.StepUpService
	payout *payments.Client
	cfg    *config.Config
}

// NewWalletHandler constructs a WalletHandler.
func NewWalletHandler(users store.UserStore, ledger *services.LedgerService, stepUp *services.StepUpService, payout *payments.Client, cfg *config.Config) *WalletHandler {
	return &WalletHandler{users: users, ledger: ledger, stepUp: stepUp, payout: payout, cfg: cfg}
}

// InitiateWithdrawal issues the step-up challenge for a withdrawal.
func (h *WalletHandler) InitiateWithdrawal(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.users.UserByID(c.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	if _, err := h.stepUp.Require(c.Context(), user.Email, services.OpWithdrawal); err != nil {
		return mapServiceError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"success":      true,
		"otp_required": true,
		"message":      "verification code sent to your email",
	})
}

type withdrawRequest struct {
	Amount        int64  `json:"amount"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	OTPCode       string `json:"otp_code"`
}

// Withdraw verifies the step-up code, appends the withdrawal to the ledger
// and dispatches the payout. An amount exceeding the balance fails with no
// transaction appended.
func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if req.Amount < h.cfg.MinWithdrawal {
		return fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("minimum withdrawal amount is %d", h.cfg.MinWithdrawal))
	}
	if len(req.AccountNumber) != 10 || !allDigits(req.AccountNumber) {
		return fiber.NewError(fiber.StatusBadRequest, "account number must be 10 digits")
	}
	if req.BankName == "" || req.AccountName == "" {
		return fiber.NewError(fiber.StatusBadRequest, "bank name and account name are required")
	}
	if req.OTPCode == "" {
		return fiber.NewError(fiber.StatusBadRequest, "verification code is required")
	}

	user, err := h.users.UserByID(c.Context(), userID)
	if err != nil {
		return mapServiceError(err)
	}

	if err := h.stepUp.Verify(c.Context(), user.Email, req.OTPCode); err != nil {
		return mapServiceError(err)
	}

	description := fmt.Sprintf("Withdrawal to %s - %s", req.BankName, req.AccountNumber)
	txn, err := h.ledger.Append(c.Context(), userID, -req.Amount, models.TxnKindWithdrawal, description)
	if err != nil {
		return mapServiceError(err)
	}

	if h.payout.Enabled() {
		payoutID, err := h.payout.Dispatch(payments.PayoutRequest{
			Reference:     txn.ID.String(),
			AmountKobo:    req.Amount,
			AccountNumber: req.AccountNumber,
			BankName:      req.BankName,
			AccountName:   req.AccountName,
		})
		if err != nil {
			// The ledger entry stays pending; the payout is retried out of band.
			log.Printf("payout dispatch failed for %s: %v", txn.ID, err)
		} else {
			log.Printf("payout %s dispatched for %s", payoutID, txn.ID)
		}
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"transaction": txn,
		"message":     "withdrawal submitted, processing may take 1-3 business days",
	})
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
