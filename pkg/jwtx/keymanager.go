package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shunines-eng/manage-system/pkg/cryptox"
)

// KeyManager owns the active signing key and the KeySet used to verify
// tokens, including tokens signed by older persisted keys.
type KeyManager struct {
	Signer   Signer
	KeySet   *KeySet
	Verifier *KeySetVerifier
}

// KeyManagerOptions configures either key manager constructor.
type KeyManagerOptions struct {
	Algorithm string // EdDSA (default) or ES256
	Issuer    string
}

func (o *KeyManagerOptions) normalise() error {
	if o.Issuer == "" {
		return errors.New("jwtx: issuer is required")
	}
	if o.Algorithm == "" {
		o.Algorithm = AlgorithmEdDSA
	}
	if o.Algorithm != AlgorithmEdDSA && o.Algorithm != AlgorithmES256 {
		return fmt.Errorf("jwtx: unsupported algorithm %q (EdDSA, ES256)", o.Algorithm)
	}
	return nil
}

// NewEphemeralKeyManager generates a key that lives only in memory. Every
// token becomes unverifiable on restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if err := opts.normalise(); err != nil {
		return nil, err
	}

	pemKey, err := generateKey(opts.Algorithm)
	if err != nil {
		return nil, err
	}
	signer, err := NewSigner(opts.Algorithm, newKID(), pemKey)
	if err != nil {
		return nil, err
	}

	km := &KeyManager{Signer: signer, KeySet: NewKeySet()}
	if err := km.KeySet.AddSigner(signer); err != nil {
		return nil, err
	}
	km.Verifier = NewVerifier(km.KeySet, opts.Issuer)
	return km, nil
}

// StoredKey is a sealed private key as persisted by a KeyStore.
type StoredKey struct {
	Kid       string
	Algorithm string
	Sealed    []byte
	CreatedAt time.Time
}

// KeyStore persists sealed signing keys. Implemented by the store package
// adapter so jwtx stays free of domain types.
type KeyStore interface {
	ListSigningKeys(ctx context.Context) ([]StoredKey, error)
	CreateSigningKey(ctx context.Context, key StoredKey) error
}

// NewPersistentKeyManager loads every stored key into the KeySet and signs
// with the newest key of the configured algorithm, creating one when none
// exists. Tokens therefore survive restarts.
func NewPersistentKeyManager(ctx context.Context, ks KeyStore, sealer *cryptox.Sealer, opts KeyManagerOptions) (*KeyManager, error) {
	if err := opts.normalise(); err != nil {
		return nil, err
	}
	if ks == nil || sealer == nil {
		return nil, errors.New("jwtx: persistent key manager needs a key store and a sealer")
	}

	stored, err := ks.ListSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: list signing keys: %w", err)
	}

	km := &KeyManager{KeySet: NewKeySet()}
	var newest time.Time

	for _, rec := range stored {
		pemKey, err := sealer.Open(rec.Sealed)
		if err != nil {
			return nil, fmt.Errorf("jwtx: unseal key %s: %w", rec.Kid, err)
		}
		signer, err := NewSigner(rec.Algorithm, rec.Kid, pemKey)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
		}
		if err := km.KeySet.AddSigner(signer); err != nil {
			return nil, err
		}
		if rec.Algorithm == opts.Algorithm && !rec.CreatedAt.Before(newest) {
			km.Signer, newest = signer, rec.CreatedAt
		}
	}

	if km.Signer == nil {
		pemKey, err := generateKey(opts.Algorithm)
		if err != nil {
			return nil, err
		}
		sealed, err := sealer.Seal(pemKey)
		if err != nil {
			return nil, err
		}
		kid := newKID()
		signer, err := NewSigner(opts.Algorithm, kid, pemKey)
		if err != nil {
			return nil, err
		}
		if err := ks.CreateSigningKey(ctx, StoredKey{
			Kid:       kid,
			Algorithm: opts.Algorithm,
			Sealed:    sealed,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return nil, fmt.Errorf("jwtx: store signing key: %w", err)
		}
		if err := km.KeySet.AddSigner(signer); err != nil {
			return nil, err
		}
		km.Signer = signer
	}

	km.Verifier = NewVerifier(km.KeySet, opts.Issuer)
	return km, nil
}

func (km *KeyManager) Algorithm() string { return km.Signer.Alg() }
func (km *KeyManager) IsReady() bool     { return km.Signer != nil && km.KeySet.IsReady() }

func generateKey(alg string) ([]byte, error) {
	if alg == AlgorithmES256 {
		return cryptox.GenerateES256Key()
	}
	return cryptox.GenerateEd25519Key()
}

func newKID() string {
	return "ms-" + cryptox.MustGenerateToken(cryptox.TokenSize128)
}
