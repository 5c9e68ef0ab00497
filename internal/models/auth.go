package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims is the payload of an identity token.
type TokenClaims struct {
	UserID int64 `json:"id"`
	jwt.RegisteredClaims
}
