package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Env = "test"
	cfg.LogLevel = "error"
	cfg.DatabaseFile = filepath.Join(dir, "auth.db")
	cfg.PepperFile = filepath.Join(dir, "pepper")
	cfg.CaptchaTestCode = "ab12"
	cfg.AdminPassword = "admin-password"
	return cfg
}

func TestNew_SeedsAdminOnce(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	app, err := New(ctx, cfg)
	require.NoError(t, err)

	srv := httptest.NewServer(app.router)
	client := authsdk.NewSDKClient(srv.URL)

	c, err := client.GetCaptcha(ctx)
	require.NoError(t, err)
	sess, err := client.Login(ctx, c.Session, authsdk.LoginRequest{
		Identifier:      "admin",
		Secret:          "admin-password",
		ChallengeAnswer: "AB12",
	})
	require.NoError(t, err)
	require.True(t, sess.IsAdmin())

	srv.Close()
	require.NoError(t, app.Shutdown())

	// A second start finds the admin and does not reseed with new values.
	cfg.AdminPassword = "other-password"
	app, err = New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })

	acct, err := app.db.Accounts().FindByIdentifier(ctx, "admin")
	require.NoError(t, err)
	require.NoError(t, cryptox.VerifyPassword("admin-password", acct.SecretHash))
}

func TestNew_PersistentKeysSurviveRestart(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.KeyStorageMode = "persistent"
	t.Setenv("AUTH_MASTER_KEY", "0123456789abcdef0123456789abcdef")

	app, err := New(ctx, cfg)
	require.NoError(t, err)
	kid := app.keyManager.Signer.KID()
	require.NoError(t, app.Shutdown())

	app, err = New(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Shutdown() })
	require.Equal(t, kid, app.keyManager.Signer.KID())

	rec := httptest.NewRecorder()
	app.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
