// Command authctl performs operator tasks against the auth database
// without going through the HTTP API.
//
// Usage:
//
//	authctl seed-admin [-username name] [-email addr]
//	authctl unlock <identifier>
//	authctl hash-password
//
// It reads the same configuration as the auth service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/shunines-eng/manage-system/internal/auth/app"
	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

// readPassword is replaced in tests.
var readPassword = term.ReadPassword

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "authctl:", err)
		os.Exit(1)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: authctl <seed-admin|unlock|hash-password> [args]")
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		usage(out)
		return errors.New("missing command")
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	cryptox.SetPepperPath(cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return fmt.Errorf("load pepper: %w", err)
	}
	ctx = slogx.WithContext(ctx, app.NewLogger(cfg))

	switch args[0] {
	case "hash-password":
		return hashPassword(out)
	case "seed-admin", "unlock":
	default:
		usage(out)
		return fmt.Errorf("unknown command %q", args[0])
	}

	db, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if args[0] == "seed-admin" {
		return seedAdmin(ctx, db, cfg, args[1:], out)
	}
	return unlock(ctx, db, cfg, args[1:], out)
}

func promptPassword(out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(pw), nil
}

func hashPassword(out io.Writer) error {
	pw, err := promptPassword(out, "Password: ")
	if err != nil {
		return err
	}
	if pw == "" {
		return errors.New("empty password")
	}

	hash, err := cryptox.HashPassword(pw)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, hash)
	return nil
}

func seedAdmin(ctx context.Context, db store.Store, cfg app.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	fs.SetOutput(out)
	username := fs.String("username", cfg.AdminUsername, "administrator username")
	email := fs.String("email", cfg.AdminEmail, "administrator email")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password := cfg.AdminPassword
	if password == "" {
		var err error
		if password, err = promptPassword(out, "Administrator password (empty to generate): "); err != nil {
			return err
		}
	}

	svc := &service.BootstrapService{Store: db, StoreTimeout: cfg.StoreTimeout}
	res, err := svc.Bootstrap(ctx, domain.BootstrapData{
		AdminUsername: *username,
		AdminPassword: password,
		AdminEmail:    *email,
	})
	if errors.Is(err, service.ErrBootstrapAlready) {
		return errors.New("accounts already exist; seed-admin only runs against an empty database")
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "created administrator %s (%s)\n", res.Account.Identifier, res.Account.ID)
	if res.GeneratedPassword != "" {
		fmt.Fprintf(out, "generated password: %s\n", res.GeneratedPassword)
	}
	return nil
}

func unlock(ctx context.Context, db store.Store, cfg app.Config, args []string, out io.Writer) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("usage: authctl unlock <identifier>")
	}

	acct, err := db.Accounts().FindByIdentifier(ctx, strings.TrimSpace(args[0]))
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no account %q", args[0])
	}
	if err != nil {
		return err
	}

	svc := &service.AdminService{
		Store:        db,
		Log:          &service.OperationLogService{Store: db, StoreTimeout: cfg.StoreTimeout},
		Policy:       service.LockoutPolicy{MaxAttempts: cfg.LockoutMaxAttempts, LockDuration: cfg.LockoutDuration},
		StoreTimeout: cfg.StoreTimeout,
	}
	if _, err := svc.Unlock(ctx, service.Actor{Identifier: "authctl", OriginAddress: "local"}, acct.ID); err != nil {
		return err
	}

	fmt.Fprintf(out, "unlocked %s\n", acct.Identifier)
	return nil
}
