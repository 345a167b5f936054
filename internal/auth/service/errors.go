package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/store"
)

var (
	ErrChallengeExpired    = errors.New("challenge_expired")
	ErrChallengeMismatch   = errors.New("challenge_mismatch")
	ErrInvalidCredentials  = errors.New("invalid_credentials")
	ErrAccountLocked       = errors.New("account_locked")
	ErrAccountDisabled     = errors.New("account_disabled")
	ErrDuplicateIdentifier = errors.New("duplicate_identifier")
	ErrDuplicateEmail      = errors.New("duplicate_email")
	ErrTokenExpired        = errors.New("token_expired")
	ErrTokenInvalid        = errors.New("invalid_token")
	ErrNotFound            = errors.New("not_found")
	ErrInvalidInput        = errors.New("invalid_request")

	// ErrTransient means the store did not answer in time or was busy.
	// The request may be retried.
	ErrTransient = errors.New("temporarily_unavailable")
)

// LockedError is returned for a locked account. It matches
// ErrAccountLocked under errors.Is.
type LockedError struct {
	RetryAfter time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// ValidationError names the offending field. It matches ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Reason }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// DefaultStoreTimeout bounds every store round trip made by a service.
const DefaultStoreTimeout = 3 * time.Second

// storeCtx derives the context for one store call.
func storeCtx(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// transient wraps timeouts and busy errors as ErrTransient and leaves
// everything else untouched.
func transient(err error) error {
	if err == nil || errors.Is(err, ErrTransient) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, store.ErrBusy) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}
