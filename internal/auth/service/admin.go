package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/idx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

// AdminCreateRequest describes an account created by an administrator.
// Such accounts start with a verified email.
type AdminCreateRequest struct {
	Username string
	Password string
	Email    string
	FullName string
	Phone    string
	Role     domain.Role
	Enabled  *bool
}

// AdminUpdate carries optional changes; nil fields are left alone.
type AdminUpdate struct {
	ProfileUpdate
	Role    *domain.Role
	Enabled *bool
}

// AdminService manages accounts on behalf of an administrator. Every call
// leaves one entry in the operation log, successful or not.
type AdminService struct {
	Store        store.Store
	Log          *OperationLogService
	Policy       LockoutPolicy
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *AdminService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *AdminService) List(ctx context.Context, actor Actor, f domain.AccountFilter) (domain.AccountPage, error) {
	f.Keyword = strings.TrimSpace(f.Keyword)
	f.Limit = clampLimit(f.Limit)
	if f.Offset < 0 {
		f.Offset = 0
	}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	page, err := s.Store.Accounts().List(sctx, f)
	cancel()
	err = transient(err)

	s.Log.Record(ctx, actor, domain.ActionQuery, domain.TargetUser, "", f.Keyword, err)
	return page, err
}

func (s *AdminService) Get(ctx context.Context, actor Actor, id string) (domain.Account, error) {
	acct, err := findAccountByID(ctx, s.Store, s.StoreTimeout, id)
	s.Log.Record(ctx, actor, domain.ActionQuery, domain.TargetUser, id, acct.Identifier, err)
	return acct, err
}

func (s *AdminService) Create(ctx context.Context, actor Actor, req AdminCreateRequest) (domain.Account, error) {
	acct, err := s.create(ctx, req)
	s.Log.Record(ctx, actor, domain.ActionCreate, domain.TargetUser, acct.ID, strings.TrimSpace(req.Username), err)
	if err == nil {
		slogx.FromContext(ctx).Info("account created by admin", "account_id", acct.ID, "actor_id", actor.ID)
	}
	return acct, err
}

func (s *AdminService) create(ctx context.Context, req AdminCreateRequest) (domain.Account, error) {
	username := strings.TrimSpace(req.Username)
	if err := validateIdentifier(username); err != nil {
		return domain.Account{}, err
	}
	email, err := normaliseEmail(req.Email)
	if err != nil {
		return domain.Account{}, err
	}
	if err := validatePassword("password", req.Password); err != nil {
		return domain.Account{}, err
	}
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return domain.Account{}, invalid("role", "must be user or admin")
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return domain.Account{}, err
	}

	now := s.now()
	acct := domain.Account{
		ID:            idx.NewAt(now).String(),
		Identifier:    username,
		Email:         email,
		SecretHash:    hash,
		Role:          role,
		Enabled:       enabled,
		FullName:      strings.TrimSpace(req.FullName),
		Phone:         strings.TrimSpace(req.Phone),
		EmailVerified: true,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := createAccount(ctx, s.Store, s.StoreTimeout, acct); err != nil {
		return domain.Account{}, err
	}
	return acct, nil
}

// Update applies u. An administrator cannot demote or disable themselves.
func (s *AdminService) Update(ctx context.Context, actor Actor, id string, u AdminUpdate) (domain.Account, error) {
	acct, err := s.update(ctx, actor, id, u)
	s.Log.Record(ctx, actor, domain.ActionUpdate, domain.TargetUser, id, acct.Identifier, err)
	return acct, err
}

func (s *AdminService) update(ctx context.Context, actor Actor, id string, u AdminUpdate) (domain.Account, error) {
	if u.Email != nil {
		email, err := normaliseEmail(*u.Email)
		if err != nil {
			return domain.Account{}, err
		}
		u.Email = &email
	}
	if u.Role != nil {
		if !u.Role.Valid() {
			return domain.Account{}, invalid("role", "must be user or admin")
		}
		if id == actor.ID && *u.Role != domain.RoleAdmin {
			return domain.Account{}, invalid("role", "cannot demote yourself")
		}
	}
	if u.Enabled != nil && !*u.Enabled && id == actor.ID {
		return domain.Account{}, invalid("enabled", "cannot disable yourself")
	}

	return mutateAccount(ctx, s.Store, s.StoreTimeout, id, func(a *domain.Account) error {
		applyProfile(a, u.ProfileUpdate)
		if u.Role != nil {
			a.Role = *u.Role
		}
		if u.Enabled != nil {
			a.Enabled = *u.Enabled
		}
		a.UpdatedAt = s.now()
		return nil
	})
}

// Delete soft-deletes an account. Its identifier and email become free
// for reuse while log entries keep pointing at the old row.
func (s *AdminService) Delete(ctx context.Context, actor Actor, id string) error {
	var label string
	err := func() error {
		if id == actor.ID {
			return invalid("id", "cannot delete yourself")
		}
		acct, err := findAccountByID(ctx, s.Store, s.StoreTimeout, id)
		if err != nil {
			return err
		}
		label = acct.Identifier

		sctx, cancel := storeCtx(ctx, s.StoreTimeout)
		defer cancel()
		err = s.Store.Accounts().SoftDelete(sctx, id, s.now())
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return transient(err)
	}()

	s.Log.Record(ctx, actor, domain.ActionDelete, domain.TargetUser, id, label, err)
	return err
}

// SetPassword replaces the password without knowing the old one and
// clears any lock.
func (s *AdminService) SetPassword(ctx context.Context, actor Actor, id, password string) error {
	acct, err := func() (domain.Account, error) {
		if err := validatePassword("password", password); err != nil {
			return domain.Account{}, err
		}
		hash, err := cryptox.HashPassword(password)
		if err != nil {
			return domain.Account{}, err
		}
		return mutateAccount(ctx, s.Store, s.StoreTimeout, id, func(a *domain.Account) error {
			a.SecretHash = hash
			s.policy().Unlock(a)
			a.UpdatedAt = s.now()
			return nil
		})
	}()

	s.Log.Record(ctx, actor, domain.ActionUpdate, domain.TargetUserPassword, id, acct.Identifier, err)
	return err
}

// Unlock lifts a lockout immediately.
func (s *AdminService) Unlock(ctx context.Context, actor Actor, id string) (domain.Account, error) {
	acct, err := mutateAccount(ctx, s.Store, s.StoreTimeout, id, func(a *domain.Account) error {
		s.policy().Unlock(a)
		return nil
	})
	s.Log.Record(ctx, actor, domain.ActionUpdate, domain.TargetUserLock, id, acct.Identifier, err)
	if err == nil {
		slogx.FromContext(ctx).Info("account unlocked", "account_id", id, "actor_id", actor.ID)
	}
	return acct, err
}

func (s *AdminService) policy() LockoutPolicy {
	p := s.Policy
	p.Now = s.now
	return p
}
