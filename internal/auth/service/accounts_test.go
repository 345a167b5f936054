package service

import (
	"context"
	"testing"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	tokens map[string]string
}

func (n *captureNotifier) SendVerification(_ context.Context, acct domain.Account, token string) {
	if n.tokens == nil {
		n.tokens = map[string]string{}
	}
	n.tokens[acct.Identifier] = token
}

func TestAccountService_Register(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	notes := &captureNotifier{}
	e.accounts.Notifier = notes

	acct, token, err := e.accounts.Register(ctx, RegisterRequest{
		Username: "heidi",
		Password: "heidi-password",
		Email:    "heidi@example.com",
		FullName: " Heidi H ",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, acct.Role)
	require.Equal(t, "Heidi H", acct.FullName)
	require.False(t, acct.EmailVerified)
	require.Equal(t, token, notes.tokens["heidi"])

	t.Run("duplicates", func(t *testing.T) {
		_, _, err := e.accounts.Register(ctx, RegisterRequest{Username: "HEIDI", Password: "password1", Email: "other@example.com"})
		require.ErrorIs(t, err, ErrDuplicateIdentifier)

		_, _, err = e.accounts.Register(ctx, RegisterRequest{Username: "heidi2", Password: "password1", Email: "heidi@example.com"})
		require.ErrorIs(t, err, ErrDuplicateEmail)
	})

	t.Run("validation", func(t *testing.T) {
		cases := []struct {
			name  string
			req   RegisterRequest
			field string
		}{
			{"short username", RegisterRequest{Username: "ab", Password: "password1", Email: "a@b.c"}, "username"},
			{"bad username", RegisterRequest{Username: "a b c", Password: "password1", Email: "a@b.c"}, "username"},
			{"bad email", RegisterRequest{Username: "ivan", Password: "password1", Email: "nope"}, "email"},
			{"named email", RegisterRequest{Username: "ivan", Password: "password1", Email: "Ivan <ivan@b.c>"}, "email"},
			{"short password", RegisterRequest{Username: "ivan", Password: "short", Email: "ivan@b.c"}, "password"},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				_, _, err := e.accounts.Register(ctx, tc.req)
				require.ErrorIs(t, err, ErrInvalidInput)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				require.Equal(t, tc.field, verr.Field)
			})
		}
	})

	t.Run("availability", func(t *testing.T) {
		ok, err := e.accounts.IdentifierAvailable(ctx, "Heidi")
		require.NoError(t, err)
		require.False(t, ok)

		ok, err = e.accounts.IdentifierAvailable(ctx, "judy")
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = e.accounts.EmailAvailable(ctx, "HEIDI@example.com")
		require.NoError(t, err)
		require.False(t, ok)

		_, err = e.accounts.EmailAvailable(ctx, "not an email")
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("verify email", func(t *testing.T) {
		require.ErrorIs(t, e.accounts.VerifyEmail(ctx, "bogus"), ErrInvalidInput)

		require.NoError(t, e.accounts.VerifyEmail(ctx, token))
		require.True(t, e.account(t, "heidi").EmailVerified)

		require.ErrorIs(t, e.accounts.VerifyEmail(ctx, token), ErrInvalidInput)
	})
}

func TestAccountService_VerifyEmailExpired(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	_, token, err := e.accounts.Register(ctx, RegisterRequest{Username: "kim", Password: "kim-password", Email: "kim@example.com"})
	require.NoError(t, err)

	e.clock.Advance(DefaultVerificationTTL + time.Second)
	require.ErrorIs(t, e.accounts.VerifyEmail(ctx, token), ErrInvalidInput)
	require.False(t, e.account(t, "kim").EmailVerified)
}

func TestAccountService_Profile(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	acct := e.seed(t, "liam", "liam-password", domain.RoleUser)
	e.seed(t, "mia", "mia-password", domain.RoleUser)

	name, phone, age := "Liam L", "555-0100", 31
	got, err := e.accounts.UpdateProfile(ctx, acct.ID, ProfileUpdate{FullName: &name, Phone: &phone, Age: &age})
	require.NoError(t, err)
	require.Equal(t, "Liam L", got.FullName)
	require.Equal(t, 31, *got.Age)
	require.Equal(t, acct.Version+1, got.Version)

	taken := "mia@example.com"
	_, err = e.accounts.UpdateProfile(ctx, acct.ID, ProfileUpdate{Email: &taken})
	require.ErrorIs(t, err, ErrDuplicateEmail)

	_, err = e.accounts.Profile(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)

	t.Run("change password", func(t *testing.T) {
		err := e.accounts.ChangePassword(ctx, acct.ID, "liam-password", "new-password", "other-password")
		require.ErrorIs(t, err, ErrInvalidInput)

		err = e.accounts.ChangePassword(ctx, acct.ID, "wrong", "new-password", "new-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		require.NoError(t, e.accounts.ChangePassword(ctx, acct.ID, "liam-password", "new-password", "new-password"))

		_, err = e.login(ctx, t, "liam", "liam-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = e.login(ctx, t, "liam", "new-password")
		require.NoError(t, err)
	})
}
