package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

// maxSaveAttempts bounds retries when another writer bumped the account
// version between our read and our save.
const maxSaveAttempts = 3

// Login states, logged at debug level as the attempt progresses.
const (
	stateAwaitingChallenge  = "awaiting_challenge"
	stateChallengeValidated = "challenge_validated"
	stateCredentialChecked  = "credential_checked"
	stateAllowed            = "allowed"
	stateDenied             = "denied"
)

type LoginRequest struct {
	Identifier      string
	Secret          string
	SessionKey      string
	ChallengeAnswer string
	OTP             string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Account   domain.Account
}

// AuthService runs a login attempt: challenge, then credentials under the
// lockout policy, then token issuance.
type AuthService struct {
	Store        store.Store
	Captcha      *CaptchaService
	Tokens       *TokenService
	Policy       LockoutPolicy
	StoreTimeout time.Duration
	Now          func() time.Time

	// Logger receives background failures that outlive the request.
	Logger *slog.Logger

	bg sync.WaitGroup
}

func (s *AuthService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Wait blocks until background last-login updates have finished.
func (s *AuthService) Wait() { s.bg.Wait() }

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (LoginResult, error) {
	identifier := strings.TrimSpace(req.Identifier)
	l := slogx.FromContext(ctx).With("identifier", identifier)

	l.Debug("login", "state", stateAwaitingChallenge)
	if err := s.Captcha.Check(ctx, req.SessionKey, req.ChallengeAnswer); err != nil {
		l.Debug("login", "state", stateDenied, "reason", err)
		return LoginResult{}, err
	}
	l.Debug("login", "state", stateChallengeValidated)

	if identifier == "" || req.Secret == "" {
		cryptox.BurnVerify(req.Secret)
		return LoginResult{}, ErrInvalidCredentials
	}

	var (
		acct     domain.Account
		decision Decision
		err      error
	)
	secrets := &secretCache{secret: req.Secret}

	// Verify the secret before taking any lock where we can, so the slow
	// hash does not run while writers are blocked.
	if pre, err := s.findAccount(ctx, identifier); err == nil {
		if s.needsSecret(&pre) {
			secrets.matches(pre.SecretHash)
		}
	} else if errors.Is(err, ErrInvalidCredentials) {
		cryptox.BurnVerify(req.Secret)
		l.Debug("login", "state", stateDenied, "reason", "unknown identifier")
		return LoginResult{}, err
	} else {
		return LoginResult{}, err
	}

	for attempt := 1; ; attempt++ {
		acct, decision, err = s.evaluate(ctx, identifier, req.OTP, secrets)
		if !errors.Is(err, store.ErrConflict) || attempt == maxSaveAttempts {
			break
		}
		l.Debug("login save conflict, retrying", "attempt", attempt)
	}
	if errors.Is(err, store.ErrConflict) {
		return LoginResult{}, transient(store.ErrBusy)
	}
	if err != nil {
		return LoginResult{}, err
	}

	l = l.With("account_id", acct.ID)
	l.Debug("login", "state", stateCredentialChecked, "decision", decision.Kind.String())

	switch decision.Kind {
	case DecisionAllowed:
	case DecisionLocked:
		l.Debug("login", "state", stateDenied, "retry_after", decision.RetryAfter)
		return LoginResult{}, &LockedError{RetryAfter: decision.RetryAfter}
	case DecisionDisabled:
		l.Debug("login", "state", stateDenied, "reason", "disabled")
		return LoginResult{}, ErrAccountDisabled
	default:
		if decision.LockTransition {
			l.Warn("account locked after repeated failures", "attempts", acct.FailedAttempts)
		}
		l.Debug("login", "state", stateDenied, "failed_attempts", acct.FailedAttempts)
		return LoginResult{}, ErrInvalidCredentials
	}

	amr := []string{"pwd"}
	if acct.MFAEnabled() {
		amr = append(amr, "otp")
	}
	token, exp, err := s.Tokens.Issue(acct, amr)
	if err != nil {
		return LoginResult{}, err
	}

	s.touchLastLogin(ctx, acct.ID)
	l.Info("login succeeded")
	l.Debug("login", "state", stateAllowed)
	return LoginResult{Token: token, ExpiresAt: exp, Account: acct}, nil
}

func (s *AuthService) findAccount(ctx context.Context, identifier string) (domain.Account, error) {
	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	acct, err := s.Store.Accounts().FindByIdentifier(sctx, identifier)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrInvalidCredentials
	}
	return acct, transient(err)
}

// needsSecret is false when the policy will decide without the secret.
func (s *AuthService) needsSecret(acct *domain.Account) bool {
	if !acct.Enabled {
		return false
	}
	if acct.Locked && acct.LockedAt != nil {
		return s.now().Sub(*acct.LockedAt) >= s.Policy.lockDuration()
	}
	return !acct.Locked
}

// evaluate reads the account under a write lock, applies the policy and
// saves the result in one transaction.
func (s *AuthService) evaluate(ctx context.Context, identifier, otp string, secrets *secretCache) (domain.Account, Decision, error) {
	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	var (
		acct     domain.Account
		decision Decision
	)
	err := s.Store.WithTx(sctx, func(tx store.Tx) error {
		var err error
		acct, err = tx.Accounts().FindByIdentifierForUpdate(sctx, identifier)
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}

		matches := false
		if s.needsSecret(&acct) {
			matches = secrets.matches(acct.SecretHash)
			if matches && acct.MFAEnabled() {
				matches = validateTOTP(*acct.MFASecret, otp, s.now())
			}
		}

		policy := s.Policy
		policy.Now = s.now
		decision = policy.Evaluate(&acct, matches)
		if !decision.Mutated {
			return nil
		}

		v, err := tx.Accounts().Save(sctx, acct)
		if err != nil {
			return err
		}
		acct.Version = v
		return nil
	})
	if err != nil {
		return domain.Account{}, Decision{}, transient(err)
	}
	return acct, decision, nil
}

// touchLastLogin records the login time off the request path. Failure is
// logged and otherwise ignored.
func (s *AuthService) touchLastLogin(ctx context.Context, accountID string) {
	at := s.now()
	base := context.WithoutCancel(ctx)
	logger := s.Logger
	if logger == nil {
		logger = slogx.FromContext(ctx)
	}

	s.bg.Add(1)
	go func() {
		defer s.bg.Done()

		sctx, cancel := storeCtx(base, s.StoreTimeout)
		defer cancel()
		if err := s.Store.Accounts().UpdateLastLogin(sctx, accountID, at); err != nil {
			logger.Warn("failed to record last login", "account_id", accountID, "error", err)
		}
	}()
}

// secretCache remembers verification results per stored hash so a retried
// transaction does not hash the secret again.
type secretCache struct {
	secret  string
	results map[string]bool
}

func (c *secretCache) matches(hash string) bool {
	if ok, seen := c.results[hash]; seen {
		return ok
	}
	ok := cryptox.VerifyPassword(c.secret, hash) == nil
	if c.results == nil {
		c.results = make(map[string]bool, 1)
	}
	c.results[hash] = ok
	return ok
}
