package store

import (
	"context"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/pkg/idx"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
)

// KeyStoreAdapter lets jwtx persist signing keys through a Store without
// importing the domain package.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(s Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: s}
}

func (a *KeyStoreAdapter) ListSigningKeys(ctx context.Context) ([]jwtx.StoredKey, error) {
	keys, err := a.store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]jwtx.StoredKey, len(keys))
	for i, k := range keys {
		out[i] = jwtx.StoredKey{
			Kid:       k.Kid,
			Algorithm: k.Algorithm,
			Sealed:    k.PrivateKeyEncrypted,
			CreatedAt: k.CreatedAt,
		}
	}
	return out, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, key jwtx.StoredKey) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:                  idx.NewAt(key.CreatedAt).String(),
		Kid:                 key.Kid,
		Algorithm:           key.Algorithm,
		PrivateKeyEncrypted: key.Sealed,
		CreatedAt:           key.CreatedAt,
	})
}
