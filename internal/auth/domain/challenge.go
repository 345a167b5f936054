package domain

import "time"

// Challenge is a CAPTCHA code bound to one client session. A session has
// at most one live challenge and it is consumed on the first validation.
type Challenge struct {
	SessionKey string
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the challenge can no longer be answered.
func (c Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
