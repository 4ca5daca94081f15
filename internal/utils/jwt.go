package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// bearerClaims bind the short-lived transport token to the device-bound
// session it was minted alongside. The session token itself never appears in
// the claims, only its digest.
type bearerClaims struct {
	UserID        string `json:"user_id"`
	SessionDigest string `json:"sid"`
	jwt.RegisteredClaims
}

// SessionDigest derives the claim value for a session token.
func SessionDigest(sessionToken string) string {
	sum := sha256.Sum256([]byte(sessionToken))
	return hex.EncodeToString(sum[:])
}

// GenerateToken creates a signed JWT for the user and session pair. It is the
// bearer transport credential for the HTTP layer; the device-bound session
// token remains the credential of record.
func GenerateToken(secret string, userID uuid.UUID, sessionToken string, ttl time.Duration) (string, error) {
	claims := &bearerClaims{
		UserID:        userID.String(),
		SessionDigest: SessionDigest(sessionToken),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken validates the token and returns the embedded user ID and the
// digest of the session the token was minted for.
func ParseToken(secret, tokenString string) (uuid.UUID, string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &bearerClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return uuid.Nil, "", err
	}

	if claims, ok := token.Claims.(*bearerClaims); ok && token.Valid {
		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			return uuid.Nil, "", err
		}
		return userID, claims.SessionDigest, nil
	}

	return uuid.Nil, "", jwt.ErrTokenInvalidClaims
}
