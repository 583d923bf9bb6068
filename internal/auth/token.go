// Package auth inspects the bearer token lumina sends to the backend. The
// signature is not verified here; the backend does that.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrMalformedToken = errors.New("malformed token")

type TokenInfo struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
	// Opaque is set for tokens that are not JWTs. Nothing else is known
	// about them.
	Opaque bool
}

// Expired reports whether the token carries an expiry before now.
func (t TokenInfo) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

func (t TokenInfo) String() string {
	if t.Opaque {
		return "opaque token"
	}
	var parts []string
	if t.Subject != "" {
		parts = append(parts, "subject "+t.Subject)
	}
	if !t.ExpiresAt.IsZero() {
		parts = append(parts, "expires "+t.ExpiresAt.Format(time.RFC3339))
	}
	if len(parts) == 0 {
		return "token without claims"
	}
	return strings.Join(parts, ", ")
}

// Inspect reads the registered claims of a JWT. Tokens that do not look
// like a JWT at all are accepted as opaque.
func Inspect(token string) (TokenInfo, error) {
	token = Normalize(token)
	if token == "" {
		return TokenInfo{}, fmt.Errorf("%w: empty", ErrMalformedToken)
	}
	if strings.Count(token, ".") != 2 {
		return TokenInfo{Opaque: true}, nil
	}

	var claims jwt.RegisteredClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, &claims); err != nil {
		return TokenInfo{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	info := TokenInfo{Subject: claims.Subject, Issuer: claims.Issuer}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	return info, nil
}

// Normalize strips whitespace and a "Bearer " prefix.
func Normalize(token string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(token), "Bearer "))
}
