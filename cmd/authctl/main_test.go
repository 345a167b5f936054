package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/store/drivers/sqlite"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, password string) string {
	t.Helper()

	dir := t.TempDir()
	dbFile := filepath.Join(dir, "auth.db")
	t.Setenv("AUTH_CONFIG_FILE", "")
	t.Setenv("AUTH_DATABASE_FILE", dbFile)
	t.Setenv("AUTH_PEPPER_FILE", filepath.Join(dir, "pepper"))
	t.Setenv("LOG_LEVEL", "error")

	orig := readPassword
	readPassword = func(int) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() { readPassword = orig })
	return dbFile
}

func TestSeedAdminAndUnlock(t *testing.T) {
	ctx := context.Background()
	dbFile := setup(t, "operator-password")

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"seed-admin", "-username", "root", "-email", "root@example.com"}, &out))
	require.Contains(t, out.String(), "created administrator root")
	require.NotContains(t, out.String(), "generated password")

	err := run(ctx, []string{"seed-admin"}, &out)
	require.ErrorContains(t, err, "already exist")

	st, err := sqlite.NewStore(dbFile)
	require.NoError(t, err)
	defer st.Close()

	acct, err := st.Accounts().FindByIdentifier(ctx, "root")
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("operator-password", acct.SecretHash))

	now := time.Now().UTC()
	acct.Locked, acct.LockedAt, acct.FailedAttempts = true, &now, 5
	_, err = st.Accounts().Save(ctx, acct)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, run(ctx, []string{"unlock", "ROOT"}, &out))
	require.Contains(t, out.String(), "unlocked root")

	acct, err = st.Accounts().FindByIdentifier(ctx, "root")
	require.NoError(t, err)
	require.False(t, acct.Locked)
	require.Zero(t, acct.FailedAttempts)

	require.ErrorContains(t, run(ctx, []string{"unlock", "nobody"}, &out), "no account")
}

func TestHashPassword(t *testing.T) {
	setup(t, "s3cret-password")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"hash-password"}, &out))

	lines := bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n"))
	hash := string(lines[len(lines)-1])
	require.NoError(t, cryptox.VerifyPassword("s3cret-password", hash))
}

func TestUnknownCommand(t *testing.T) {
	setup(t, "")
	require.Error(t, run(context.Background(), nil, &bytes.Buffer{}))
	require.ErrorContains(t, run(context.Background(), []string{"frobnicate"}, &bytes.Buffer{}), "unknown command")
}
