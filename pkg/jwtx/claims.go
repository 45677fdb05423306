package jwtx

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a browser/API session token.
const DefaultSessionTTL = 12 * time.Hour

// Claims are the session claims carried by every sharebox token.
type Claims struct {
	jwt.RegisteredClaims

	// Session ID, distinct per login.
	SID string `json:"sid,omitempty"`

	// Username of the authenticated user, informational only.
	Username string `json:"username,omitempty"`

	// Superuser mirrors the user flag at login time. Authorization decisions
	// re-read the user record; this is for clients.
	Superuser bool `json:"su,omitempty"`
}

// NewSessionClaims builds minimally-correct session claims.
func NewSessionClaims(
	subject, sid, username string,
	superuser bool,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        sid,
		},
		SID:       sid,
		Username:  username,
		Superuser: superuser,
	}
}

// ValidateIssuer checks if the issuer matches expected value. An empty
// expectation enforces nothing.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't used
// before nbf.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
