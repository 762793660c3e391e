package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Inspect decodes a token's claims without checking its signature. The
// console has no signing key; it only needs the expiry to decide whether a
// stored session is worth presenting to the server.
func Inspect(tokenString string) (*Claims, error) {
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Expired reports whether the claims carry an expiry at or before now.
// Tokens without an exp claim never expire client-side.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(c.ExpiresAt.Time)
}
