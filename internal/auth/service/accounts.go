package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/idx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

const (
	DefaultVerificationTTL = 24 * time.Hour
	MinPasswordLength      = 8
	maxPasswordLength      = 128
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{2,31}$`)

func validateIdentifier(identifier string) error {
	if !identifierPattern.MatchString(identifier) {
		return invalid("username", "3-32 letters, digits, '.', '_' or '-'")
	}
	return nil
}

func normaliseEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "not a valid address")
	}
	return email, nil
}

func validatePassword(field, password string) error {
	if len(password) < MinPasswordLength || len(password) > maxPasswordLength {
		return invalid(field, "must be 8-128 characters")
	}
	return nil
}

type RegisterRequest struct {
	Username string
	Password string
	Email    string
	Phone    string
	FullName string
}

// ProfileUpdate carries optional changes; nil fields are left alone.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
	Email    *string
	Age      *int
	Gender   *string
}

// AccountService covers self-service account operations.
type AccountService struct {
	Store           store.Store
	Notifier        Notifier
	VerificationTTL time.Duration
	StoreTimeout    time.Duration
	Now             func() time.Time
}

func (s *AccountService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Register creates a user account with an unverified email and sends a
// verification token through the Notifier. The returned token is the
// only copy; the store keeps its fingerprint.
func (s *AccountService) Register(ctx context.Context, req RegisterRequest) (domain.Account, string, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateIdentifier(username); err != nil {
		return domain.Account{}, "", err
	}
	email, err := normaliseEmail(req.Email)
	if err != nil {
		return domain.Account{}, "", err
	}
	if err := validatePassword("password", req.Password); err != nil {
		return domain.Account{}, "", err
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.Account{}, "", err
	}

	ttl := s.VerificationTTL
	if ttl <= 0 {
		ttl = DefaultVerificationTTL
	}
	now := s.now()
	expires := now.Add(ttl)
	token := uuid.NewString()

	acct := domain.Account{
		ID:                    idx.NewAt(now).String(),
		Identifier:            username,
		Email:                 email,
		SecretHash:            hash,
		Role:                  domain.RoleUser,
		Enabled:               true,
		FullName:              strings.TrimSpace(req.FullName),
		Phone:                 strings.TrimSpace(req.Phone),
		VerificationTokenHash: cryptox.FingerprintToken(token),
		VerificationExpiresAt: &expires,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	if err := createAccount(ctx, s.Store, s.StoreTimeout, acct); err != nil {
		return domain.Account{}, "", err
	}

	slogx.FromContext(ctx).Info("account registered", "account_id", acct.ID, "identifier", acct.Identifier)
	if s.Notifier != nil {
		s.Notifier.SendVerification(ctx, acct, token)
	}
	return acct, token, nil
}

// createAccount checks identifier and email first so the caller learns
// which one clashed, then relies on the unique indexes for races.
func createAccount(ctx context.Context, st store.Store, timeout time.Duration, acct domain.Account) error {
	sctx, cancel := storeCtx(ctx, timeout)
	defer cancel()

	taken, err := st.Accounts().ExistsByIdentifier(sctx, acct.Identifier)
	if err != nil {
		return transient(err)
	}
	if taken {
		return ErrDuplicateIdentifier
	}
	taken, err = st.Accounts().ExistsByEmail(sctx, acct.Email)
	if err != nil {
		return transient(err)
	}
	if taken {
		return ErrDuplicateEmail
	}

	err = st.Accounts().Create(sctx, acct)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race; report the more likely clash.
		return ErrDuplicateIdentifier
	}
	return transient(err)
}

// VerifyEmail marks the owner of token as verified. Unknown, used and
// expired tokens all yield ErrInvalidInput.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return invalid("token", "required")
	}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	acct, err := s.Store.Accounts().FindByVerificationTokenHash(sctx, cryptox.FingerprintToken(token))
	cancel()
	if errors.Is(err, store.ErrNotFound) {
		return invalid("token", "unknown or expired")
	}
	if err != nil {
		return transient(err)
	}

	_, err = mutateAccount(ctx, s.Store, s.StoreTimeout, acct.ID, func(a *domain.Account) error {
		now := s.now()
		if a.VerificationExpiresAt == nil || !now.Before(*a.VerificationExpiresAt) {
			return invalid("token", "unknown or expired")
		}
		a.EmailVerified = true
		a.VerificationTokenHash = ""
		a.VerificationExpiresAt = nil
		a.UpdatedAt = now
		return nil
	})
	return err
}

func (s *AccountService) IdentifierAvailable(ctx context.Context, identifier string) (bool, error) {
	identifier = strings.TrimSpace(identifier)
	if err := validateIdentifier(identifier); err != nil {
		return false, err
	}
	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	taken, err := s.Store.Accounts().ExistsByIdentifier(sctx, identifier)
	return !taken, transient(err)
}

func (s *AccountService) EmailAvailable(ctx context.Context, email string) (bool, error) {
	email, err := normaliseEmail(email)
	if err != nil {
		return false, err
	}
	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	taken, err := s.Store.Accounts().ExistsByEmail(sctx, email)
	return !taken, transient(err)
}

func (s *AccountService) Profile(ctx context.Context, accountID string) (domain.Account, error) {
	return findAccountByID(ctx, s.Store, s.StoreTimeout, accountID)
}

func findAccountByID(ctx context.Context, st store.Store, timeout time.Duration, id string) (domain.Account, error) {
	sctx, cancel := storeCtx(ctx, timeout)
	defer cancel()

	acct, err := st.Accounts().FindByID(sctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrNotFound
	}
	return acct, transient(err)
}

// UpdateProfile applies u. Changing the email clears its verified flag.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID string, u ProfileUpdate) (domain.Account, error) {
	if u.Email != nil {
		email, err := normaliseEmail(*u.Email)
		if err != nil {
			return domain.Account{}, err
		}
		u.Email = &email
	}
	return mutateAccount(ctx, s.Store, s.StoreTimeout, accountID, func(a *domain.Account) error {
		applyProfile(a, u)
		a.UpdatedAt = s.now()
		return nil
	})
}

func applyProfile(a *domain.Account, u ProfileUpdate) {
	if u.FullName != nil {
		a.FullName = strings.TrimSpace(*u.FullName)
	}
	if u.Phone != nil {
		a.Phone = strings.TrimSpace(*u.Phone)
	}
	if u.Age != nil {
		a.Age = u.Age
	}
	if u.Gender != nil {
		a.Gender = strings.TrimSpace(*u.Gender)
	}
	if u.Email != nil && !strings.EqualFold(*u.Email, a.Email) {
		a.Email = *u.Email
		a.EmailVerified = false
	}
}

// ChangePassword requires the current password; a wrong one counts as
// ErrInvalidCredentials but does not touch the lockout counter.
func (s *AccountService) ChangePassword(ctx context.Context, accountID, current, next, confirm string) error {
	if next != confirm {
		return invalid("confirm_password", "does not match new_password")
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}

	acct, err := s.Profile(ctx, accountID)
	if err != nil {
		return err
	}
	if cryptox.VerifyPassword(current, acct.SecretHash) != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(next)
	if err != nil {
		return err
	}

	_, err = mutateAccount(ctx, s.Store, s.StoreTimeout, accountID, func(a *domain.Account) error {
		if a.SecretHash != acct.SecretHash {
			// Changed underneath us; make the caller start over.
			return ErrInvalidCredentials
		}
		a.SecretHash = hash
		a.UpdatedAt = s.now()
		return nil
	})
	if err == nil {
		slogx.FromContext(ctx).Info("password changed", "account_id", accountID)
	}
	return err
}
