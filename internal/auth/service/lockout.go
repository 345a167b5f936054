package service

import (
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
)

const (
	DefaultMaxAttempts  = 5
	DefaultLockDuration = 10 * time.Minute
)

type DecisionKind int

const (
	DecisionAllowed DecisionKind = iota
	DecisionInvalidCredentials
	DecisionLocked
	DecisionDisabled
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAllowed:
		return "allowed"
	case DecisionInvalidCredentials:
		return "invalid_credentials"
	case DecisionLocked:
		return "locked"
	case DecisionDisabled:
		return "disabled"
	}
	return "unknown"
}

// Decision is the outcome of one login attempt against an account.
type Decision struct {
	Kind DecisionKind

	// RetryAfter is set for DecisionLocked.
	RetryAfter time.Duration

	// LockTransition is true only on the attempt that locked the account.
	LockTransition bool

	// AutoUnlocked is true when an expired lock was lifted by this attempt.
	AutoUnlocked bool

	// Mutated reports whether the account changed and must be saved.
	Mutated bool
}

// LockoutPolicy counts failed attempts and locks an account for
// LockDuration once MaxAttempts consecutive failures are reached. It
// holds no state; the caller persists the account it mutates.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
	Now          func() time.Time
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: DefaultMaxAttempts, LockDuration: DefaultLockDuration}
}

func (p LockoutPolicy) now() time.Time {
	if p.Now != nil {
		return p.Now().UTC()
	}
	return time.Now().UTC()
}

func (p LockoutPolicy) maxAttempts() int {
	if p.MaxAttempts <= 0 {
		return DefaultMaxAttempts
	}
	return p.MaxAttempts
}

func (p LockoutPolicy) lockDuration() time.Duration {
	if p.LockDuration <= 0 {
		return DefaultLockDuration
	}
	return p.LockDuration
}

// Evaluate applies one attempt to acct. secretMatches is ignored while the
// account is disabled or locked.
func (p LockoutPolicy) Evaluate(acct *domain.Account, secretMatches bool) Decision {
	if !acct.Enabled {
		return Decision{Kind: DecisionDisabled}
	}

	now := p.now()
	var d Decision

	if acct.Locked {
		if acct.LockedAt == nil {
			// A lock without a start time is restarted rather than lifted.
			acct.LockedAt = &now
			acct.UpdatedAt = now
			return Decision{Kind: DecisionLocked, RetryAfter: p.lockDuration(), Mutated: true}
		}

		// A lock stamped ahead of this clock counts from now.
		elapsed := max(now.Sub(*acct.LockedAt), 0)
		if elapsed < p.lockDuration() {
			return Decision{Kind: DecisionLocked, RetryAfter: p.lockDuration() - elapsed}
		}

		clearLock(acct)
		acct.UpdatedAt = now
		d.AutoUnlocked, d.Mutated = true, true
	}

	if secretMatches {
		if acct.FailedAttempts != 0 {
			acct.FailedAttempts = 0
			acct.UpdatedAt = now
			d.Mutated = true
		}
		d.Kind = DecisionAllowed
		return d
	}

	acct.FailedAttempts++
	acct.UpdatedAt = now
	d.Mutated = true
	d.Kind = DecisionInvalidCredentials

	if acct.FailedAttempts >= p.maxAttempts() {
		acct.Locked = true
		acct.LockedAt = &now
		d.LockTransition = true
	}
	return d
}

// Unlock lifts a lock immediately and reports whether anything changed.
func (p LockoutPolicy) Unlock(acct *domain.Account) bool {
	if !acct.Locked && acct.FailedAttempts == 0 && acct.LockedAt == nil {
		return false
	}
	clearLock(acct)
	acct.UpdatedAt = p.now()
	return true
}

func clearLock(acct *domain.Account) {
	acct.Locked = false
	acct.LockedAt = nil
	acct.FailedAttempts = 0
}
