// Package auth inspects the opaque bearer tokens the backend issues. The
// client never verifies signatures; it only reads the registered claims to
// schedule refreshes ahead of expiry.
package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var parser = jwt.NewParser()

// TokenExpiry reads the exp claim without verifying the signature.
func TokenExpiry(token string) (time.Time, error) {
	if strings.TrimSpace(token) == "" {
		return time.Time{}, fmt.Errorf("empty token")
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token has no expiry claim")
	}
	return claims.ExpiresAt.Time, nil
}

// Expired reports whether the token expires within the given skew. Tokens
// that cannot be parsed are treated as live; the backend's 401 remains the
// authority on their validity.
func Expired(token string, skew time.Duration) bool {
	expiry, err := TokenExpiry(token)
	if err != nil {
		return false
	}
	return time.Now().Add(skew).After(expiry)
}
