package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/freshkit/freshkit-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Login methods recorded on the session.
const (
	MethodCode      = "code"
	MethodMagicLink = "magic_link"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// MintSessionToken issues a signed member session valid for cfg.TTL.
func MintSessionToken(cfg config.SessionConfig, now time.Time, memberID, method string) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("session secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("session issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("session ttl must be positive")
	}
	memberID = strings.TrimSpace(memberID)
	if memberID == "" {
		return "", fmt.Errorf("member id is required")
	}

	claims := SessionClaims{
		MemberID: memberID,
		Method:   method,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   memberID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwtSigningMethod, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}

// ParseSessionToken validates signature, issuer and expiry and returns the claims.
func ParseSessionToken(cfg config.SessionConfig, tokenString string) (*SessionClaims, error) {
	if cfg.Secret == "" {
		return nil, fmt.Errorf("session secret is required")
	}

	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(claims.MemberID) == "" {
		return nil, fmt.Errorf("session token missing member id")
	}
	return claims, nil
}
