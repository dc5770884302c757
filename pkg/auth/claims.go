package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Email  string
	// JTI ties the access token to its refresh session. Generated when empty.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to clients. The subject is the user id.
type AccessTokenClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *AccessTokenClaims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}
