package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is read from defaults, then the TOML file named by
// AUTH_CONFIG_FILE, then the environment. Later layers win.
type Config struct {
	Issuer         string `toml:"issuer"`           // issuer claim for tokens (default: manage-system-auth)
	PublicURL      string `toml:"public_url"`       // base of links sent to users (default: http://localhost:8080)
	Algorithm      string `toml:"algorithm"`        // JWT signing algorithm, EdDSA or ES256 (default: EdDSA)
	KeyStorageMode string `toml:"key_storage_mode"` // ephemeral or persistent (default: ephemeral)
	MasterKeyPath  string `toml:"master_key_path"`  // master key file for persistent keys

	DatabaseDriver string `toml:"database_driver"` // sqlite or postgres (default: sqlite)
	DatabaseFile   string `toml:"database_file"`   // sqlite path (default: auth.db)
	DatabaseURL    string `toml:"database_url"`    // postgres connection URL
	PepperFile     string `toml:"pepper_file"`     // password pepper, created when missing (default: pepper)

	TokenTTL           time.Duration `toml:"token_ttl"`            // default: 24h
	LockoutMaxAttempts int           `toml:"lockout_max_attempts"` // default: 5
	LockoutDuration    time.Duration `toml:"lockout_duration"`     // default: 10m
	CaptchaTTL         time.Duration `toml:"captcha_ttl"`          // default: 5m
	StoreTimeout       time.Duration `toml:"store_timeout"`        // default: 3s
	VerificationTTL    time.Duration `toml:"verification_ttl"`     // default: 24h
	SecureCookies      bool          `toml:"secure_cookies"`       // default: true

	AdminUsername string `toml:"admin_username"` // seeded on an empty store (default: admin)
	AdminPassword string `toml:"admin_password"` // generated and logged once when empty
	AdminEmail    string `toml:"admin_email"`    // default: admin@localhost

	// CaptchaTestCode fixes every captcha answer. Ignored unless Env is test.
	CaptchaTestCode string `toml:"captcha_test_code"`

	Env                  string        `toml:"env"`                   // dev, test, staging, prod (default: dev)
	LogLevel             string        `toml:"log_level"`             // debug, info, warn, error (default: info)
	LogFormat            string        `toml:"log_format"`            // json, text (default: json)
	Port                 int           `toml:"port"`                  // default: 8080
	ShutdownGracePeriod  time.Duration `toml:"shutdown_grace_period"` // default: 10s
	HousekeepingInterval time.Duration `toml:"housekeeping_interval"` // default: 1h
}

func DefaultConfig() Config {
	return Config{
		Issuer:               "manage-system-auth",
		PublicURL:            "http://localhost:8080",
		Algorithm:            "EdDSA",
		KeyStorageMode:       "ephemeral",
		DatabaseDriver:       "sqlite",
		DatabaseFile:         "auth.db",
		PepperFile:           "pepper",
		TokenTTL:             24 * time.Hour,
		LockoutMaxAttempts:   5,
		LockoutDuration:      10 * time.Minute,
		CaptchaTTL:           5 * time.Minute,
		StoreTimeout:         3 * time.Second,
		VerificationTTL:      24 * time.Hour,
		SecureCookies:        true,
		Env:                  "dev",
		LogLevel:             "info",
		LogFormat:            "json",
		Port:                 8080,
		ShutdownGracePeriod:  10 * time.Second,
		HousekeepingInterval: time.Hour,
	}
}

// LoadConfig builds the Config and validates it.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("AUTH_CONFIG_FILE"); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Issuer = getEnvOrDefault("AUTH_ISSUER", c.Issuer)
	c.PublicURL = getEnvOrDefault("AUTH_PUBLIC_URL", c.PublicURL)
	c.Algorithm = getEnvOrDefault("AUTH_ALGORITHM", c.Algorithm)
	c.KeyStorageMode = getEnvOrDefault("AUTH_KEY_STORAGE_MODE", c.KeyStorageMode)
	c.MasterKeyPath = getEnvOrDefault("AUTH_MASTER_KEY_PATH", c.MasterKeyPath)

	c.DatabaseDriver = getEnvOrDefault("AUTH_DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseFile = getEnvOrDefault("AUTH_DATABASE_FILE", c.DatabaseFile)
	c.DatabaseURL = getEnvOrDefault("AUTH_DATABASE_URL", c.DatabaseURL)
	c.PepperFile = getEnvOrDefault("AUTH_PEPPER_FILE", c.PepperFile)

	c.TokenTTL = getEnvDurationOrDefault("AUTH_TOKEN_TTL", c.TokenTTL)
	c.LockoutMaxAttempts = getEnvIntOrDefault("AUTH_LOCKOUT_MAX_ATTEMPTS", c.LockoutMaxAttempts)
	c.LockoutDuration = getEnvDurationOrDefault("AUTH_LOCKOUT_DURATION", c.LockoutDuration)
	c.CaptchaTTL = getEnvDurationOrDefault("AUTH_CAPTCHA_TTL", c.CaptchaTTL)
	c.StoreTimeout = getEnvDurationOrDefault("AUTH_STORE_TIMEOUT", c.StoreTimeout)
	c.VerificationTTL = getEnvDurationOrDefault("AUTH_VERIFICATION_TTL", c.VerificationTTL)
	c.SecureCookies = getEnvBoolOrDefault("AUTH_SECURE_COOKIES", c.SecureCookies)

	c.AdminUsername = getEnvOrDefault("AUTH_ADMIN_USERNAME", c.AdminUsername)
	c.AdminPassword = getEnvOrDefault("AUTH_ADMIN_PASSWORD", c.AdminPassword)
	c.AdminEmail = getEnvOrDefault("AUTH_ADMIN_EMAIL", c.AdminEmail)
	c.CaptchaTestCode = getEnvOrDefault("AUTH_CAPTCHA_TEST_CODE", c.CaptchaTestCode)

	c.Env = getEnvOrDefault("ENV", c.Env)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnvOrDefault("LOG_FORMAT", c.LogFormat)
	c.Port = getEnvIntOrDefault("PORT", c.Port)
	c.ShutdownGracePeriod = getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", c.ShutdownGracePeriod)
	c.HousekeepingInterval = getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", c.HousekeepingInterval)
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Issuer) == "" {
		errs = append(errs, errors.New("issuer is required"))
	}
	switch c.Algorithm {
	case "EdDSA", "ES256":
	default:
		errs = append(errs, fmt.Errorf("unsupported algorithm %q (EdDSA, ES256)", c.Algorithm))
	}
	switch c.KeyStorageMode {
	case "ephemeral", "persistent":
	default:
		errs = append(errs, fmt.Errorf("unknown key storage mode %q (ephemeral, persistent)", c.KeyStorageMode))
	}
	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("database file is required for sqlite"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database URL is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q (sqlite, postgres)", c.DatabaseDriver))
	}
	if c.LockoutMaxAttempts < 1 {
		errs = append(errs, errors.New("lockout max attempts must be at least 1"))
	}
	for name, d := range map[string]time.Duration{
		"token ttl":        c.TokenTTL,
		"lockout duration": c.LockoutDuration,
		"captcha ttl":      c.CaptchaTTL,
		"store timeout":    c.StoreTimeout,
		"verification ttl": c.VerificationTTL,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// FixedCaptchaCode is the captcha answer forced for test deployments.
func (c Config) FixedCaptchaCode() string {
	if c.Env != "test" {
		return ""
	}
	return strings.ToUpper(c.CaptchaTestCode)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes.
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
