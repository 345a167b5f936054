package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
)

// TokenService mints and checks session tokens.
type TokenService struct {
	KeyManager   *jwtx.KeyManager
	Store        store.Store
	Issuer       string
	TTL          time.Duration
	StoreTimeout time.Duration
	Now          func() time.Time
}

func (s *TokenService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Lifetime is how long a freshly issued token stays valid.
func (s *TokenService) Lifetime() time.Duration { return s.ttl() }

func (s *TokenService) ttl() time.Duration {
	if s.TTL <= 0 {
		return jwtx.DefaultTokenTTL
	}
	return s.TTL
}

// Issue signs a token for acct. It never touches the store.
func (s *TokenService) Issue(acct domain.Account, amr []string) (string, time.Time, error) {
	now := s.now()
	claims := jwtx.NewClaims(acct.ID, acct.Identifier, acct.Role.String(), amr, s.Issuer, s.ttl(), now)

	token, err := s.KeyManager.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, claims.ExpiresAtTime(), nil
}

// Verify checks signature, issuer and lifetime, then the revocation list.
// Failures are ErrTokenExpired or ErrTokenInvalid; the jwtx cause stays in
// the chain.
func (s *TokenService) Verify(ctx context.Context, token string) (jwtx.Claims, error) {
	v := *s.KeyManager.Verifier
	v.Now = s.now

	claims, err := v.Verify(token)
	if errors.Is(err, jwtx.ErrExpired) {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	if err != nil {
		return jwtx.Claims{}, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	if claims.ID != "" && s.Store != nil {
		sctx, cancel := storeCtx(ctx, s.StoreTimeout)
		defer cancel()

		revoked, err := s.Store.RevokedTokens().IsRevoked(sctx, claims.ID)
		if err != nil {
			return jwtx.Claims{}, transient(err)
		}
		if revoked {
			return jwtx.Claims{}, fmt.Errorf("%w: token revoked", ErrTokenInvalid)
		}
	}
	return claims, nil
}

// Revoke denies the token's jti until it would have expired.
func (s *TokenService) Revoke(ctx context.Context, claims jwtx.Claims) error {
	if claims.ID == "" {
		return fmt.Errorf("%w: token has no id", ErrTokenInvalid)
	}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	return transient(s.Store.RevokedTokens().Revoke(sctx, domain.RevokedToken{
		JTI:       claims.ID,
		AccountID: claims.Subject,
		ExpiresAt: claims.ExpiresAtTime(),
		RevokedAt: s.now(),
	}))
}
