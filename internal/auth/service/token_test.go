package service

import (
	"context"
	"testing"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestTokenService(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	acct := e.seed(t, "grace", "grace-password", domain.RoleAdmin)

	t.Run("round trip", func(t *testing.T) {
		token, exp, err := e.tokens.Issue(acct, []string{"pwd"})
		require.NoError(t, err)
		require.Equal(t, e.clock.Now().Add(jwtx.DefaultTokenTTL), exp)

		claims, err := e.tokens.Verify(ctx, token)
		require.NoError(t, err)
		require.Equal(t, acct.ID, claims.Subject)
		require.Equal(t, "grace", claims.Username)
		require.Equal(t, testIssuer, claims.Issuer)
		require.NotEmpty(t, claims.ID)
	})

	t.Run("expired", func(t *testing.T) {
		token, _, err := e.tokens.Issue(acct, nil)
		require.NoError(t, err)

		e.clock.Advance(jwtx.DefaultTokenTTL + time.Minute)
		_, err = e.tokens.Verify(ctx, token)
		require.ErrorIs(t, err, ErrTokenExpired)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("tampered", func(t *testing.T) {
		token, _, err := e.tokens.Issue(acct, nil)
		require.NoError(t, err)

		_, err = e.tokens.Verify(ctx, token[:len(token)-4]+"AAAA")
		require.ErrorIs(t, err, ErrTokenInvalid)

		_, err = e.tokens.Verify(ctx, "not-a-token")
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		other := *e.tokens
		other.Issuer = "http://elsewhere"
		token, _, err := other.Issue(acct, nil)
		require.NoError(t, err)

		_, err = e.tokens.Verify(ctx, token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("revoked", func(t *testing.T) {
		token, _, err := e.tokens.Issue(acct, nil)
		require.NoError(t, err)
		claims, err := e.tokens.Verify(ctx, token)
		require.NoError(t, err)

		require.NoError(t, e.tokens.Revoke(ctx, claims))
		require.NoError(t, e.tokens.Revoke(ctx, claims))

		_, err = e.tokens.Verify(ctx, token)
		require.ErrorIs(t, err, ErrTokenInvalid)
	})
}
