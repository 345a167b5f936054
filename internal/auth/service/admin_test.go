package service

import (
	"context"
	"testing"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestAdminService(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	root := e.seed(t, "root", "root-password", domain.RoleAdmin)
	actor := Actor{ID: root.ID, Identifier: root.Identifier, OriginAddress: "10.0.0.1"}

	acct, err := e.admin.Create(ctx, actor, AdminCreateRequest{
		Username: "nina",
		Password: "nina-password",
		Email:    "nina@example.com",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleUser, acct.Role)
	require.True(t, acct.Enabled)
	require.True(t, acct.EmailVerified)

	_, err = e.admin.Create(ctx, actor, AdminCreateRequest{Username: "nina", Password: "nina-password", Email: "x@example.com"})
	require.ErrorIs(t, err, ErrDuplicateIdentifier)

	t.Run("list and get", func(t *testing.T) {
		page, err := e.admin.List(ctx, actor, domain.AccountFilter{Keyword: "nin"})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, acct.ID, page.Accounts[0].ID)

		got, err := e.admin.Get(ctx, actor, acct.ID)
		require.NoError(t, err)
		require.Equal(t, "nina", got.Identifier)

		_, err = e.admin.Get(ctx, actor, "missing")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update", func(t *testing.T) {
		role := domain.RoleAdmin
		got, err := e.admin.Update(ctx, actor, acct.ID, AdminUpdate{Role: &role})
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, got.Role)

		bogus := domain.Role("owner")
		_, err = e.admin.Update(ctx, actor, acct.ID, AdminUpdate{Role: &bogus})
		require.ErrorIs(t, err, ErrInvalidInput)

		user := domain.RoleUser
		_, err = e.admin.Update(ctx, actor, root.ID, AdminUpdate{Role: &user})
		require.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unlock and set password", func(t *testing.T) {
		for range DefaultMaxAttempts {
			_, err := e.login(ctx, t, "nina", "wrong")
			require.ErrorIs(t, err, ErrInvalidCredentials)
		}
		_, err := e.login(ctx, t, "nina", "nina-password")
		require.ErrorIs(t, err, ErrAccountLocked)

		got, err := e.admin.Unlock(ctx, actor, acct.ID)
		require.NoError(t, err)
		require.False(t, got.Locked)
		require.Zero(t, got.FailedAttempts)

		_, err = e.login(ctx, t, "nina", "nina-password")
		require.NoError(t, err)

		require.ErrorIs(t, e.admin.SetPassword(ctx, actor, acct.ID, "short"), ErrInvalidInput)
		require.NoError(t, e.admin.SetPassword(ctx, actor, acct.ID, "reset-password"))
		_, err = e.login(ctx, t, "nina", "reset-password")
		require.NoError(t, err)
	})

	t.Run("delete", func(t *testing.T) {
		require.ErrorIs(t, e.admin.Delete(ctx, actor, root.ID), ErrInvalidInput)
		require.NoError(t, e.admin.Delete(ctx, actor, acct.ID))
		require.ErrorIs(t, e.admin.Delete(ctx, actor, acct.ID), ErrNotFound)

		_, err := e.login(ctx, t, "nina", "reset-password")
		require.ErrorIs(t, err, ErrInvalidCredentials)

		ok, err := e.accounts.IdentifierAvailable(ctx, "nina")
		require.NoError(t, err)
		require.True(t, ok)
	})

	t.Run("operation log", func(t *testing.T) {
		page, err := e.oplog.Query(ctx, domain.OperationLogFilter{ActorIdentifier: "ROOT", Limit: 100})
		require.NoError(t, err)
		require.Equal(t, page.Total, len(page.Entries))

		for _, entry := range page.Entries {
			require.Equal(t, "10.0.0.1", entry.OriginAddress)
		}

		stats, err := e.oplog.Statistics(ctx, domain.OperationLogFilter{ActorIdentifier: "root"})
		require.NoError(t, err)
		require.Equal(t, page.Total, stats.Total)
		require.Equal(t, stats.Total, stats.Success+stats.Failure)
		require.Positive(t, stats.Failure)
		require.Equal(t, 2, stats.ByAction[domain.ActionCreate])
		require.Equal(t, 3, stats.ByAction[domain.ActionDelete])

		failures, err := e.oplog.Query(ctx, domain.OperationLogFilter{
			Outcome:    domain.OutcomeFailure,
			TargetType: domain.TargetUser,
			Action:     domain.ActionCreate,
		})
		require.NoError(t, err)
		require.Equal(t, 1, failures.Total)
		require.Equal(t, ErrDuplicateIdentifier.Error(), failures.Entries[0].Detail)

		pw, err := e.oplog.Query(ctx, domain.OperationLogFilter{TargetType: domain.TargetUserPassword})
		require.NoError(t, err)
		require.Equal(t, 2, pw.Total)
	})
}

func TestOperationLogService_Filters(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	actor := Actor{ID: "01", Identifier: "ops"}

	e.oplog.Record(ctx, actor, domain.ActionQuery, domain.TargetUser, "", "", nil)
	e.clock.Advance(time.Hour)
	e.oplog.Record(ctx, actor, domain.ActionUpdate, domain.TargetUserLock, "x", "x", nil)

	start := e.clock.Now().Add(-time.Minute)
	page, err := e.oplog.Query(ctx, domain.OperationLogFilter{Start: &start})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, domain.ActionUpdate, page.Entries[0].Action)

	end := start.Add(-time.Hour)
	_, err = e.oplog.Query(ctx, domain.OperationLogFilter{Start: &start, End: &end})
	require.ErrorIs(t, err, ErrInvalidInput)

	require.Equal(t, DefaultPageSize, clampLimit(0))
	require.Equal(t, MaxPageSize, clampLimit(1000))
}
