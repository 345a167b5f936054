package service

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestLogin_LockoutScenario(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.seed(t, "alice", "correct horse", domain.RoleUser)

	for i := 1; i <= 5; i++ {
		_, err := e.login(ctx, t, "alice", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}

	acct := e.account(t, "alice")
	require.True(t, acct.Locked)
	require.Equal(t, 5, acct.FailedAttempts)

	_, err := e.login(ctx, t, "alice", "correct horse")
	require.ErrorIs(t, err, ErrAccountLocked)
	var locked *LockedError
	require.True(t, errors.As(err, &locked))
	require.InDelta(t, 600, locked.RetryAfter.Seconds(), 1)

	e.clock.Advance(4 * time.Minute)
	_, err = e.login(ctx, t, "alice", "correct horse")
	require.True(t, errors.As(err, &locked))
	require.InDelta(t, 360, locked.RetryAfter.Seconds(), 1)

	e.clock.Advance(6 * time.Minute)
	res, err := e.login(ctx, t, "alice", "correct horse")
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)
	require.WithinDuration(t, e.clock.Now().Add(24*time.Hour), res.ExpiresAt, time.Second)

	acct = e.account(t, "alice")
	require.False(t, acct.Locked)
	require.Nil(t, acct.LockedAt)
	require.Zero(t, acct.FailedAttempts)
}

func TestLogin_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.seed(t, "bob", "bob-password", domain.RoleUser)

	for range 3 {
		_, err := e.login(ctx, t, "bob", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}
	require.Equal(t, 3, e.account(t, "bob").FailedAttempts)

	res, err := e.login(ctx, t, "BOB", "bob-password")
	require.NoError(t, err)
	require.Equal(t, "bob", res.Account.Identifier)
	require.Zero(t, e.account(t, "bob").FailedAttempts)

	claims, err := e.tokens.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, res.Account.ID, claims.Subject)
	require.Equal(t, "user", claims.Role)
	require.Equal(t, []string{"pwd"}, claims.AMR)

	e.auth.Wait()
	require.NotNil(t, e.account(t, "bob").LastLoginAt)
}

func TestLogin_ChallengeShortCircuits(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.seed(t, "carol", "carol-password", domain.RoleUser)

	t.Run("wrong answer", func(t *testing.T) {
		session := NewSessionKey()
		_, _, err := e.captcha.Issue(ctx, session)
		require.NoError(t, err)

		_, err = e.auth.Login(ctx, LoginRequest{
			Identifier: "carol", Secret: "wrong", SessionKey: session, ChallengeAnswer: "ZZZZ",
		})
		require.ErrorIs(t, err, ErrChallengeMismatch)
		require.Zero(t, e.account(t, "carol").FailedAttempts)
	})

	t.Run("no challenge issued", func(t *testing.T) {
		_, err := e.auth.Login(ctx, LoginRequest{
			Identifier: "carol", Secret: "carol-password", SessionKey: NewSessionKey(), ChallengeAnswer: "AB12",
		})
		require.ErrorIs(t, err, ErrChallengeExpired)
	})

	t.Run("expired challenge", func(t *testing.T) {
		session := NewSessionKey()
		_, _, err := e.captcha.Issue(ctx, session)
		require.NoError(t, err)
		e.clock.Advance(DefaultCaptchaTTL)

		_, err = e.auth.Login(ctx, LoginRequest{
			Identifier: "carol", Secret: "carol-password", SessionKey: session, ChallengeAnswer: "AB12",
		})
		require.ErrorIs(t, err, ErrChallengeExpired)
	})
}

func TestLogin_DisabledAndUnknown(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	acct := e.seed(t, "dave", "dave-password", domain.RoleUser)

	enabled := false
	_, err := e.admin.Update(ctx, Actor{ID: "root"}, acct.ID, AdminUpdate{Enabled: &enabled})
	require.NoError(t, err)

	_, err = e.login(ctx, t, "dave", "dave-password")
	require.ErrorIs(t, err, ErrAccountDisabled)
	_, err = e.login(ctx, t, "dave", "wrong")
	require.ErrorIs(t, err, ErrAccountDisabled)
	require.Zero(t, e.account(t, "dave").FailedAttempts)

	_, err = e.login(ctx, t, "nobody", "whatever")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = e.login(ctx, t, "", "")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_ParallelFailuresLockOnce(t *testing.T) {
	stores := map[string]func(t *testing.T) string{
		"memory": func(*testing.T) string { return ":memory:" },
		"file":   func(t *testing.T) string { return filepath.Join(t.TempDir(), "auth.db") },
	}

	for name, dsn := range stores {
		t.Run(name, func(t *testing.T) {
			e := newTestEnvAt(t, dsn(t))
			e.seed(t, "erin", "erin-password", domain.RoleUser)

			rec := &recordingHandler{}
			ctx := slogx.WithContext(context.Background(), slog.New(rec))

			const n = 10
			sessions := make([]string, n)
			for i := range sessions {
				sessions[i] = NewSessionKey()
				_, _, err := e.captcha.Issue(ctx, sessions[i])
				require.NoError(t, err)
			}

			var wg sync.WaitGroup
			errs := make(chan error, n)
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := e.auth.Login(ctx, LoginRequest{
						Identifier:      "erin",
						Secret:          "wrong",
						SessionKey:      sessions[i],
						ChallengeAnswer: "AB12",
					})
					errs <- err
				}()
			}
			wg.Wait()
			close(errs)

			var invalid, locked int
			for err := range errs {
				switch {
				case errors.Is(err, ErrInvalidCredentials):
					invalid++
				case errors.Is(err, ErrAccountLocked):
					locked++
				default:
					t.Fatalf("unexpected error: %v", err)
				}
			}
			require.Equal(t, 5, invalid)
			require.Equal(t, 5, locked)
			require.Equal(t, 1, rec.count("account locked after repeated failures"))

			acct := e.account(t, "erin")
			require.True(t, acct.Locked)
			require.Equal(t, 5, acct.FailedAttempts)
		})
	}
}

func TestLogin_StoreTimeoutIsTransient(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	e.seed(t, "gina", "gina-password", domain.RoleUser)

	e.auth.StoreTimeout = time.Nanosecond
	for range 2 {
		_, err := e.login(ctx, t, "gina", "wrong")
		require.ErrorIs(t, err, ErrTransient)
		require.NotErrorIs(t, err, ErrInvalidCredentials)
	}

	acct := e.account(t, "gina")
	require.Zero(t, acct.FailedAttempts)
	require.False(t, acct.Locked)

	e.auth.StoreTimeout = 0
	_, err := e.login(ctx, t, "gina", "gina-password")
	require.NoError(t, err)
}

func TestLogin_WithMFA(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	acct := e.seed(t, "frank", "frank-password", domain.RoleAdmin)

	enrollment, err := e.mfa.Enroll(ctx, acct.ID)
	require.NoError(t, err)
	require.Contains(t, enrollment.URL, "otpauth://totp/")

	code := func() string {
		c, err := totp.GenerateCodeCustom(enrollment.Secret, e.clock.Now(), totpOpts)
		require.NoError(t, err)
		return c
	}
	require.ErrorIs(t, e.mfa.Confirm(ctx, acct.ID, "000000x"), ErrInvalidTOTPCode)
	require.NoError(t, e.mfa.Confirm(ctx, acct.ID, code()))

	_, err = e.login(ctx, t, "frank", "frank-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	session := NewSessionKey()
	_, _, err = e.captcha.Issue(ctx, session)
	require.NoError(t, err)
	res, err := e.auth.Login(ctx, LoginRequest{
		Identifier:      "frank",
		Secret:          "frank-password",
		SessionKey:      session,
		ChallengeAnswer: "AB12",
		OTP:             code(),
	})
	require.NoError(t, err)
	require.Zero(t, e.account(t, "frank").FailedAttempts)

	claims, err := e.tokens.Verify(ctx, res.Token)
	require.NoError(t, err)
	require.Equal(t, []string{"pwd", "otp"}, claims.AMR)
	require.Equal(t, "admin", claims.Role)

	require.ErrorIs(t, e.mfa.Disable(ctx, acct.ID, "123"), ErrInvalidTOTPCode)
	require.NoError(t, e.mfa.Disable(ctx, acct.ID, code()))
	_, err = e.login(ctx, t, "frank", "frank-password")
	require.NoError(t, err)
}
