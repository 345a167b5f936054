package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
)

// InitAuthKeys builds the KeyManager for the configured storage mode.
//
// Storage modes:
//   - "ephemeral": one key generated at startup and held in memory. Tokens
//     issued before a restart stop verifying.
//   - "persistent": keys are sealed with the master key and stored in the
//     database, so tokens survive restarts.
func InitAuthKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	opts := jwtx.KeyManagerOptions{Algorithm: cfg.Algorithm, Issuer: cfg.Issuer}

	if cfg.KeyStorageMode == "persistent" {
		sealer, err := cryptox.LoadSealer(cfg.MasterKeyPath)
		if err != nil {
			return nil, err
		}

		km, err := jwtx.NewPersistentKeyManager(ctx, store.NewKeyStoreAdapter(db), sealer, opts)
		if err != nil {
			return nil, fmt.Errorf("init persistent key manager: %w", err)
		}
		logger.Info("signing key loaded", "mode", "persistent", "algorithm", km.Algorithm(), "kid", km.Signer.KID())
		return km, nil
	}

	km, err := jwtx.NewEphemeralKeyManager(opts)
	if err != nil {
		return nil, fmt.Errorf("init ephemeral key manager: %w", err)
	}
	logger.Info("signing key generated", "mode", "ephemeral", "algorithm", km.Algorithm(), "kid", km.Signer.KID())
	logger.Warn("tokens issued before this start no longer verify")
	return km, nil
}
