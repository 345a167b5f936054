package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("AUTH_CONFIG_FILE", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(), cfg)
	require.Equal(t, 5, cfg.LockoutMaxAttempts)
	require.Equal(t, 10*time.Minute, cfg.LockoutDuration)
	require.Equal(t, 3*time.Second, cfg.StoreTimeout)
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
issuer = "https://auth.example.com"
database_driver = "postgres"
database_url = "postgres://auth@db/auth"
lockout_duration = "15m"
lockout_max_attempts = 3
port = 9000
`), 0o600))

	t.Setenv("AUTH_CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("AUTH_CAPTCHA_TTL", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "https://auth.example.com", cfg.Issuer)
	require.Equal(t, "postgres", cfg.DatabaseDriver)
	require.Equal(t, 15*time.Minute, cfg.LockoutDuration)
	require.Equal(t, 3, cfg.LockoutMaxAttempts)
	require.Equal(t, 9100, cfg.Port)
	require.Equal(t, 2*time.Minute, cfg.CaptchaTTL)
	require.Equal(t, 24*time.Hour, cfg.TokenTTL)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", filepath.Join(t.TempDir(), "nope.toml"))
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("postgres without url", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", "")
		t.Setenv("AUTH_DATABASE_DRIVER", "postgres")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "database URL")
	})

	t.Run("algorithm", func(t *testing.T) {
		t.Setenv("AUTH_CONFIG_FILE", "")
		t.Setenv("AUTH_ALGORITHM", "RS256")
		_, err := LoadConfig()
		require.ErrorContains(t, err, "RS256")
	})
}

func TestFixedCaptchaCode(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CaptchaTestCode = "ab12"
	require.Empty(t, cfg.FixedCaptchaCode())

	cfg.Env = "test"
	require.Equal(t, "AB12", cfg.FixedCaptchaCode())
}

func TestGetEnvDurationOrDefault(t *testing.T) {
	t.Setenv("X_DURATION", "90s")
	require.Equal(t, 90*time.Second, getEnvDurationOrDefault("X_DURATION", time.Hour))

	t.Setenv("X_DURATION", "garbage")
	require.Equal(t, time.Hour, getEnvDurationOrDefault("X_DURATION", time.Hour))
}
