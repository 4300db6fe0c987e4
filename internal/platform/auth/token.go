package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest describes a token to issue.
type TokenRequest struct {
	Subject  string
	Roles    []string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// IssueToken signs an HS256 token that JWTMiddleware configured with the
// same key, issuer and audience accepts.
func IssueToken(key []byte, req TokenRequest, now time.Time) (string, error) {
	if len(key) == 0 {
		return "", errors.New("auth: empty signing key")
	}
	if req.Subject == "" {
		return "", errors.New("auth: subject is required")
	}
	if req.TTL <= 0 {
		req.TTL = time.Hour
	}
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Subject,
			Issuer:    req.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
		},
		Roles: req.Roles,
	}
	if req.Audience != "" {
		claims.Audience = jwt.ClaimStrings{req.Audience}
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}
