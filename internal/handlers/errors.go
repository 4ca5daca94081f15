package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/example/bookbucks/internal/catalog"
	"github.com/example/bookbucks/internal/identity"
	"github.com/example/bookbucks/internal/services"
	"github.com/example/bookbucks/internal/store"
)

// mapServiceError translates service-layer sentinel errors into HTTP errors.
// ErrOTPRequired is deliberately absent: it is a control branch handled at
// the call site, never an error response.
func mapServiceError(err error) error {
	switch {
	case errors.Is(err, services.ErrValidation):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrOTPInvalidCode),
		errors.Is(err, services.ErrOTPExpired):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrOTPTooManyAttempts):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, services.ErrSessionInvalid):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, services.ErrInsufficientBalance),
		errors.Is(err, services.ErrSuspiciousActivity):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, catalog.ErrBookNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "record not found")
	}
	return err
}
