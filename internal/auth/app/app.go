package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	httpapi "github.com/shunines-eng/manage-system/internal/auth/http"
	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/internal/auth/store/drivers/postgres"
	"github.com/shunines-eng/manage-system/internal/auth/store/drivers/sqlite"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

const (
	// BuildVersion is overridden at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application holds the auth service and everything it depends on.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db         store.Store
	keyManager *jwtx.KeyManager

	captchaService      *service.CaptchaService
	tokenService        *service.TokenService
	authService         *service.AuthService
	accountService      *service.AccountService
	adminService        *service.AdminService
	oplogService        *service.OperationLogService
	mfaService          *service.MFAService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// NewLogger returns the service logger for cfg.
func NewLogger(cfg Config) *slog.Logger {
	return slogx.New(slogx.Config{
		Service: "auth-service",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})
}

// New opens the store, loads keys and seeds the first administrator.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{cfg: cfg, logger: NewLogger(cfg)}

	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("load pepper: %w", err)
	}

	db, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.db = db
	app.logger.Info("database ready", "driver", cfg.DatabaseDriver)

	app.keyManager, err = InitAuthKeys(ctx, cfg, db, app.logger)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}

	app.initServices()

	if err := app.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	app.initHTTP()
	return app, nil
}

// OpenStore connects to the configured database and applies migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(cfg.DatabaseFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

// Run serves until SIGINT/SIGTERM or a server error.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.housekeepingService.Stop()
			_ = app.db.Close()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains requests, waits for background writes and closes the
// store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	app.router.Drain()

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()
	app.authService.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

func (app *Application) initServices() {
	cfg := app.cfg
	policy := service.LockoutPolicy{
		MaxAttempts:  cfg.LockoutMaxAttempts,
		LockDuration: cfg.LockoutDuration,
	}

	app.captchaService = &service.CaptchaService{
		Store:        app.db,
		TTL:          cfg.CaptchaTTL,
		StoreTimeout: cfg.StoreTimeout,
		FixedCode:    cfg.FixedCaptchaCode(),
	}
	if app.captchaService.FixedCode != "" {
		app.logger.Warn("captcha answers are fixed; never run ENV=test in production")
	}

	app.tokenService = &service.TokenService{
		KeyManager:   app.keyManager,
		Store:        app.db,
		Issuer:       cfg.Issuer,
		TTL:          cfg.TokenTTL,
		StoreTimeout: cfg.StoreTimeout,
	}
	app.authService = &service.AuthService{
		Store:        app.db,
		Captcha:      app.captchaService,
		Tokens:       app.tokenService,
		Policy:       policy,
		StoreTimeout: cfg.StoreTimeout,
		Logger:       app.logger,
	}
	app.accountService = &service.AccountService{
		Store:           app.db,
		Notifier:        service.LogNotifier{Logger: app.logger, BaseURL: cfg.PublicURL},
		VerificationTTL: cfg.VerificationTTL,
		StoreTimeout:    cfg.StoreTimeout,
	}
	app.oplogService = &service.OperationLogService{Store: app.db, StoreTimeout: cfg.StoreTimeout}
	app.adminService = &service.AdminService{
		Store:        app.db,
		Log:          app.oplogService,
		Policy:       policy,
		StoreTimeout: cfg.StoreTimeout,
	}
	app.mfaService = &service.MFAService{
		Store:        app.db,
		Issuer:       cfg.Issuer,
		StoreTimeout: cfg.StoreTimeout,
	}
	app.bootstrapService = &service.BootstrapService{Store: app.db, StoreTimeout: cfg.StoreTimeout}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		cfg.HousekeepingInterval,
	)
}

// bootstrap seeds the configured administrator into an empty store. A
// generated password is logged once; it is not recoverable afterwards.
func (app *Application) bootstrap(ctx context.Context) error {
	res, err := app.bootstrapService.Bootstrap(slogx.WithContext(ctx, app.logger), domain.BootstrapData{
		AdminUsername: app.cfg.AdminUsername,
		AdminPassword: app.cfg.AdminPassword,
		AdminEmail:    app.cfg.AdminEmail,
	})
	if errors.Is(err, service.ErrBootstrapAlready) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("seed administrator: %w", err)
	}

	if res.GeneratedPassword != "" {
		app.logger.Warn("administrator created with a generated password; change it after first login",
			"username", res.Account.Identifier,
			"password", res.GeneratedPassword,
		)
	}
	return nil
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.SecureCookies = app.cfg.SecureCookies
	router.CaptchaService = app.captchaService
	router.TokenService = app.tokenService
	router.AuthService = app.authService
	router.AccountService = app.accountService
	router.AdminService = app.adminService
	router.OperationLogs = app.oplogService
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
