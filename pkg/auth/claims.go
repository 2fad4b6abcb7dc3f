package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the member portal session carried in the session cookie.
type SessionClaims struct {
	MemberID string `json:"member_id"`
	Method   string `json:"method,omitempty"`
	jwt.RegisteredClaims
}
