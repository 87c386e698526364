package types

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenClaims are the claims the identity provider puts in a bearer token.
// UserID falls back to the subject when the provider omits it.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
}

// Identity returns the caller id carried by the claims.
func (c *TokenClaims) Identity() (uuid.UUID, bool) {
	if c.UserID != uuid.Nil {
		return c.UserID, true
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
