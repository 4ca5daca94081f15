package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/bookbucks/internal/services"
	"github.com/example/bookbucks/internal/utils"
)

const (
	userContextKey    = "currentUserID"
	sessionContextKey = "currentSessionToken"

	// SessionCookie carries the device-bound session token.
	SessionCookie = "bookbucks_session"
	// FingerprintHeader carries the opaque device fingerprint the client was
	// issued at authentication.
	FingerprintHeader = "X-Device-Fingerprint"
)

// AuthMiddleware validates the JWT bearer token and the device-bound session
// behind it. Both must pass: a valid JWT presented from a different device
// (fingerprint mismatch) is rejected.
func AuthMiddleware(jwtSecret string, sessions *services.SessionManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		userID, sessionDigest, err := utils.ParseToken(jwtSecret, parts[1])
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		sessionToken := c.Cookies(SessionCookie)
		fingerprint := c.Get(FingerprintHeader)
		if sessionToken == "" || fingerprint == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing session credentials")
		}

		// The bearer token is minted for one session; presenting it alongside
		// any other session token rejects.
		if utils.SessionDigest(sessionToken) != sessionDigest {
			return fiber.NewError(fiber.StatusUnauthorized, "session invalid")
		}

		sessionUser, err := sessions.Validate(c.Context(), sessionToken, fingerprint)
		if err != nil {
			if errors.Is(err, services.ErrSessionInvalid) {
				return fiber.NewError(fiber.StatusUnauthorized, "session invalid")
			}
			return err
		}
		if sessionUser != userID {
			return fiber.NewError(fiber.StatusUnauthorized, "session invalid")
		}

		c.Locals(userContextKey, userID)
		c.Locals(sessionContextKey, sessionToken)
		return c.Next()
	}
}

// GetCurrentUserID extracts the authenticated user ID from context.
func GetCurrentUserID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(userContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetSessionToken extracts the validated session token from context.
func GetSessionToken(c *fiber.Ctx) (string, bool) {
	value := c.Locals(sessionContextKey)
	if value == nil {
		return "", false
	}

	if token, ok := value.(string); ok {
		return token, true
	}

	return "", false
}
