package jwtx

import (
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

// KeySet holds the public keys tokens are verified against. Safe for
// concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	keys map[string]any
	jwks []JWK
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]any)}
}

// AddSigner publishes the signer's public key.
func (k *KeySet) AddSigner(s Signer) error {
	return k.AddJWK(s.PublicJWK())
}

// AddJWK parses and stores j. Re-adding a kid replaces the old key.
func (k *KeySet) AddJWK(j JWK) error {
	pub, err := j.PublicKey()
	if err != nil {
		return err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if _, exists := k.keys[j.Kid]; exists {
		for i := range k.jwks {
			if k.jwks[i].Kid == j.Kid {
				k.jwks[i] = j
			}
		}
	} else {
		k.jwks = append(k.jwks, j)
	}
	k.keys[j.Kid] = pub
	return nil
}

func (k *KeySet) Get(kid string) (any, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if pub, ok := k.keys[kid]; ok {
		return pub, nil
	}
	return nil, ErrNoKey
}

// PublicJWKS returns a copy safe to serialise.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]JWK, len(k.jwks))
	copy(out, k.jwks)
	return JWKS{Keys: out}
}

func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}
