package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrUnknownKID   = errors.New("jwtx: unknown kid")
	ErrInvalidSig   = errors.New("jwtx: invalid signature")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Verifier checks a token and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// KeySetVerifier verifies EdDSA and ES256 tokens against a KeySet. The
// key type registered under the token's kid decides which algorithm is
// accepted, so a token can not downgrade itself to another method.
type KeySetVerifier struct {
	Keys   *KeySet
	Issuer string
	Leeway time.Duration
	Now    func() time.Time
}

func NewVerifier(keys *KeySet, issuer string) *KeySetVerifier {
	return &KeySetVerifier{Keys: keys, Issuer: issuer}
}

func (v *KeySetVerifier) Verify(raw string) (Claims, error) {
	var claims Claims

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{AlgorithmEdDSA, AlgorithmES256}),
		jwt.WithoutClaimsValidation(), // time checks happen below against v.Now
	)

	_, err := parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, ErrUnknownKID
		}
		pub, err := v.Keys.Get(kid)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownKID, kid)
		}
		if !methodMatchesKey(t.Method, pub) {
			return nil, ErrInvalidSig
		}
		return pub, nil
	})
	if err != nil {
		return Claims{}, classify(err)
	}

	if err := claims.ValidateIssuer(v.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTime(v.now(), v.Leeway); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

func (v *KeySetVerifier) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func methodMatchesKey(m jwt.SigningMethod, pub any) bool {
	switch m.Alg() {
	case AlgorithmEdDSA:
		return isEd25519(pub)
	case AlgorithmES256:
		return isECDSA(pub)
	}
	return false
}

func classify(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKID):
		return err
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid),
		errors.Is(err, jwt.ErrTokenUnverifiable),
		errors.Is(err, ErrInvalidSig):
		return fmt.Errorf("%w: %v", ErrInvalidSig, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformed, err)
}
