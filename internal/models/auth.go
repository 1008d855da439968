package models

import "github.com/golang-jwt/jwt/v5"

// UserRole names the role carried by an issued credential.
type UserRole string

// RoleAdmin is the only role the API grants.
const RoleAdmin UserRole = "admin"

// TokenTypeBearer is reported alongside every issued access token.
const TokenTypeBearer = "bearer"

// LoginRequest carries the shared admin secret. Password is a pointer so an
// absent field can be told apart from an empty one.
type LoginRequest struct {
	Password *string `json:"password" validate:"required"`
}

// Secret returns the submitted password, "" when absent.
func (r LoginRequest) Secret() string {
	if r.Password == nil {
		return ""
	}
	return *r.Password
}

// AccessToken is the credential returned by a successful login.
type AccessToken struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// JWTClaims represents the JWT payload for admin tokens.
type JWTClaims struct {
	Role UserRole `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the claims grant admin rights.
func (c *JWTClaims) IsAdmin() bool {
	return c != nil && c.Role == RoleAdmin
}
