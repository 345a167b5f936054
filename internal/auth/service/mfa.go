package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
)

var (
	ErrInvalidTOTPCode   = errors.New("invalid_otp")
	ErrMFANotEnabled     = errors.New("mfa_not_enabled")
	ErrMFAAlreadyEnabled = errors.New("mfa_already_enabled")
	ErrMFANotEnrolled    = errors.New("mfa_not_enrolled")
)

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// validateTOTP accepts the code for now plus or minus one 30s step.
func validateTOTP(secret, code string, now time.Time) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	ok, err := totp.ValidateCustom(code, secret, now, totpOpts)
	return err == nil && ok
}

// MFAService manages the optional TOTP second factor. Once confirmed, the
// login flow requires a current code alongside the secret.
type MFAService struct {
	Store        store.Store
	Issuer       string
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *MFAService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Enroll generates a pending secret. Calling it again before
// confirmation replaces the pending secret.
func (s *MFAService) Enroll(ctx context.Context, accountID string) (domain.MFAEnrollment, error) {
	var enrollment domain.MFAEnrollment

	_, err := mutateAccount(ctx, s.Store, s.StoreTimeout, accountID, func(a *domain.Account) error {
		if a.MFAEnabled() {
			return ErrMFAAlreadyEnabled
		}

		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      s.Issuer,
			AccountName: a.Identifier,
			Period:      totpOpts.Period,
			Digits:      totpOpts.Digits,
			Algorithm:   totpOpts.Algorithm,
		})
		if err != nil {
			return fmt.Errorf("generate totp key: %w", err)
		}

		secret := key.Secret()
		a.MFASecret = &secret
		a.MFAEnabledAt = nil
		a.UpdatedAt = s.now()

		enrollment = domain.MFAEnrollment{
			Secret:  secret,
			URL:     key.URL(),
			Issuer:  s.Issuer,
			Account: a.Identifier,
		}
		return nil
	})
	return enrollment, err
}

// Confirm enables MFA once the client proves it holds the pending secret.
func (s *MFAService) Confirm(ctx context.Context, accountID, code string) error {
	_, err := mutateAccount(ctx, s.Store, s.StoreTimeout, accountID, func(a *domain.Account) error {
		if a.MFAEnabled() {
			return ErrMFAAlreadyEnabled
		}
		if a.MFASecret == nil {
			return ErrMFANotEnrolled
		}
		now := s.now()
		if !validateTOTP(*a.MFASecret, code, now) {
			return ErrInvalidTOTPCode
		}
		a.MFAEnabledAt = &now
		a.UpdatedAt = now
		return nil
	})
	return err
}

// Disable removes the second factor. A current code is required.
func (s *MFAService) Disable(ctx context.Context, accountID, code string) error {
	_, err := mutateAccount(ctx, s.Store, s.StoreTimeout, accountID, func(a *domain.Account) error {
		if !a.MFAEnabled() {
			return ErrMFANotEnabled
		}
		now := s.now()
		if !validateTOTP(*a.MFASecret, code, now) {
			return ErrInvalidTOTPCode
		}
		a.MFASecret = nil
		a.MFAEnabledAt = nil
		a.UpdatedAt = now
		return nil
	})
	return err
}
