package domain

import "time"

// Account is a login principal. Identifier is the username and never
// changes after creation.
type Account struct {
	ID         string
	Identifier string
	Email      string
	SecretHash string // argon2id PHC string
	Role       Role
	Enabled    bool

	// Lockout state. Locked is true exactly when LockedAt is set, and
	// FailedAttempts returns to 0 whenever the account leaves the locked
	// state.
	FailedAttempts int
	Locked         bool
	LockedAt       *time.Time

	// Profile
	FullName string
	Phone    string
	Age      *int
	Gender   string

	EmailVerified         bool
	VerificationTokenHash string
	VerificationExpiresAt *time.Time

	MFASecret    *string    // base32 TOTP secret
	MFAEnabledAt *time.Time // nil until enrolment is confirmed

	// Version is bumped on every save and checked to detect concurrent
	// writers.
	Version int64

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt *time.Time
	DeletedAt   *time.Time
}

// MFAEnabled reports whether a confirmed TOTP secret is on file.
func (a Account) MFAEnabled() bool {
	return a.MFAEnabledAt != nil && a.MFASecret != nil
}

// IsAdmin reports whether the account carries the admin role.
func (a Account) IsAdmin() bool { return a.Role == RoleAdmin }

// AccountFilter narrows an admin listing. Keyword matches identifier,
// email or full name.
type AccountFilter struct {
	Keyword string
	Offset  int
	Limit   int
}

// AccountPage is one page of a listing plus the unpaged total.
type AccountPage struct {
	Accounts []Account
	Total    int
}
