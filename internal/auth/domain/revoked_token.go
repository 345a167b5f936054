package domain

import "time"

// RevokedToken denies a token id until the token would have expired anyway.
type RevokedToken struct {
	JTI       string
	AccountID string
	ExpiresAt time.Time
	RevokedAt time.Time
}
