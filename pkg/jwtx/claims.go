package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL matches the length of a working session.
const DefaultTokenTTL = 24 * time.Hour

// Claims carried by every session token.
type Claims struct {
	jwt.RegisteredClaims

	// Role gates admin routes ("user" or "admin").
	Role string `json:"role"`

	// Username is the login identifier, kept for logs and display.
	Username string `json:"username,omitempty"`

	// AMR lists how the subject authenticated: "pwd", and "otp" when a
	// second factor was checked.
	AMR []string `json:"amr,omitempty"`
}

// NewClaims builds claims valid from now for ttl.
func NewClaims(subject, username, role string, amr []string, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Role:     role,
		Username: username,
		AMR:      amr,
	}
}

// NewJTI returns a random URL-safe token id.
func NewJTI() string {
	var b [18]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer is a no-op when expected is empty.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected != "" && c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateTime enforces exp and nbf against now, allowing leeway of skew.
// A token with no exp is rejected.
func (c *Claims) ValidateTime(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}

// ExpiresAtTime returns exp or the zero time.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time.UTC()
}
