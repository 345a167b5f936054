package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/idx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

var ErrBootstrapAlready = errors.New("system already bootstrapped")

const (
	DefaultAdminUsername = "admin"
	DefaultAdminEmail    = "admin@localhost"
)

// BootstrapService seeds the first administrator into an empty store.
type BootstrapService struct {
	Store        store.Store
	StoreTimeout time.Duration
	Now          func() time.Time
}

// BootstrapResult reports the seeded account. Password is only set when
// it was generated, so the operator can be shown it once.
type BootstrapResult struct {
	Account           domain.Account
	GeneratedPassword string
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	empty, err := s.Store.Accounts().IsEmpty(sctx)
	if err != nil {
		return false, transient(err)
	}
	return !empty, nil
}

// Bootstrap creates the admin described by req when no live account
// exists. Empty fields fall back to defaults and a missing password is
// generated.
func (s *BootstrapService) Bootstrap(ctx context.Context, req domain.BootstrapData) (BootstrapResult, error) {
	l := slogx.FromContext(ctx)

	bootstrapped, err := s.IsBootstrapped(ctx)
	if err != nil {
		return BootstrapResult{}, err
	}
	if bootstrapped {
		return BootstrapResult{}, ErrBootstrapAlready
	}

	var res BootstrapResult
	username := strings.TrimSpace(req.AdminUsername)
	if username == "" {
		username = DefaultAdminUsername
	}
	if err := validateIdentifier(username); err != nil {
		return BootstrapResult{}, err
	}
	email := strings.TrimSpace(req.AdminEmail)
	if email == "" {
		email = DefaultAdminEmail
	}

	password := req.AdminPassword
	if password == "" {
		password, err = cryptox.GeneratePassword()
		if err != nil {
			return BootstrapResult{}, err
		}
		res.GeneratedPassword = password
	} else if err := validatePassword("password", password); err != nil {
		return BootstrapResult{}, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return BootstrapResult{}, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now().UTC()
	}
	acct := domain.Account{
		ID:            idx.NewAt(now).String(),
		Identifier:    username,
		Email:         email,
		SecretHash:    hash,
		Role:          domain.RoleAdmin,
		Enabled:       true,
		FullName:      req.AdminFullName,
		EmailVerified: true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := createAccount(ctx, s.Store, s.StoreTimeout, acct); err != nil {
		return BootstrapResult{}, err
	}

	l.Info("seeded administrator",
		slog.String("account_id", acct.ID),
		slog.String("identifier", acct.Identifier),
		slog.Bool("generated_password", res.GeneratedPassword != ""),
	)
	res.Account = acct
	return res, nil
}
