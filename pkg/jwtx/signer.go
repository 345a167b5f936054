package jwtx

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Supported signing algorithms.
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmES256 = "ES256"
)

// Signer turns claims into a compact JWS.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	PublicJWK() JWK
}

type keySigner struct {
	kid    string
	method jwt.SigningMethod
	priv   crypto.Signer
	jwk    JWK
}

// NewSigner parses a PKCS8 PEM private key for alg.
func NewSigner(alg, kid string, pemKey []byte) (Signer, error) {
	if kid == "" {
		return nil, errors.New("jwtx: empty kid")
	}

	block, _ := pem.Decode(pemKey)
	if block == nil || block.Type != "PRIVATE KEY" {
		return nil, errors.New("jwtx: expected PKCS8 \"PRIVATE KEY\" PEM block")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}

	switch alg {
	case AlgorithmEdDSA:
		priv, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("jwtx: %s needs an Ed25519 key, got %T", alg, parsed)
		}
		return &keySigner{
			kid:    kid,
			method: jwt.SigningMethodEdDSA,
			priv:   priv,
			jwk:    NewEd25519JWK(kid, alg, priv.Public().(ed25519.PublicKey)),
		}, nil

	case AlgorithmES256:
		priv, ok := parsed.(*ecdsa.PrivateKey)
		if !ok || priv.Curve != elliptic.P256() {
			return nil, fmt.Errorf("jwtx: %s needs a P-256 key", alg)
		}
		return &keySigner{
			kid:    kid,
			method: jwt.SigningMethodES256,
			priv:   priv,
			jwk:    NewES256JWK(kid, alg, &priv.PublicKey),
		}, nil
	}

	return nil, fmt.Errorf("jwtx: unsupported algorithm %q", alg)
}

func (s *keySigner) Alg() string    { return s.method.Alg() }
func (s *keySigner) KID() string    { return s.kid }
func (s *keySigner) PublicJWK() JWK { return s.jwk }

func (s *keySigner) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(s.method, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.priv)
}
