package models

import (
	"strconv"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token.
type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// JWTClaims represents the access token payload: the subject carries the
// user id, role is a private claim.
type JWTClaims struct {
	Role UserRole `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the numeric user id out of the subject claim.
func (c *JWTClaims) UserID() int64 {
	id, _ := strconv.ParseInt(c.Subject, 10, 64)
	return id
}
