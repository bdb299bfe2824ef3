package domain

import (
	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Claim is the JWT payload issued by the identity provider. The ledger
// trusts UserID as the wallet owner.
type Claim struct {
	UserID        uuid.UUID `json:"user_id"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"email_verified"`
	jwt.StandardClaims
}
