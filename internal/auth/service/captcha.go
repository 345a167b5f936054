package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/domain"
	"github.com/shunines-eng/manage-system/internal/auth/store"
	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

const (
	CaptchaAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CaptchaLength     = 4
	DefaultCaptchaTTL = 5 * time.Minute
)

// CaptchaService issues and checks session-bound challenges.
type CaptchaService struct {
	Store        store.Store
	TTL          time.Duration
	StoreTimeout time.Duration
	Now          func() time.Time

	// FixedCode replaces the random code. Only set in test deployments.
	FixedCode string

	// Render draws the code; nil means RenderCaptcha.
	Render func(code string) ([]byte, error)
}

func (s *CaptchaService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// NewSessionKey returns an opaque 128-bit key identifying a client
// session for challenge purposes.
func NewSessionKey() string {
	return cryptox.MustGenerateToken(cryptox.TokenSize128)
}

// Issue stores a fresh challenge for sessionKey, replacing any previous
// one, and returns it with its PNG rendering.
func (s *CaptchaService) Issue(ctx context.Context, sessionKey string) (domain.Challenge, []byte, error) {
	if strings.TrimSpace(sessionKey) == "" {
		return domain.Challenge{}, nil, invalid("session", "required")
	}

	code := s.FixedCode
	if code == "" {
		var err error
		if code, err = cryptox.GenerateCode(CaptchaAlphabet, CaptchaLength); err != nil {
			return domain.Challenge{}, nil, err
		}
	}

	render := s.Render
	if render == nil {
		render = func(code string) ([]byte, error) { return RenderCaptcha(code, nil) }
	}
	img, err := render(code)
	if err != nil {
		return domain.Challenge{}, nil, err
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultCaptchaTTL
	}
	now := s.now()
	c := domain.Challenge{SessionKey: sessionKey, Code: code, CreatedAt: now, ExpiresAt: now.Add(ttl)}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()
	if err := s.Store.Challenges().Put(sctx, c); err != nil {
		return domain.Challenge{}, nil, transient(err)
	}

	slogx.FromContext(ctx).Debug("captcha issued", "expires_at", c.ExpiresAt)
	return c, img, nil
}

// Check consumes the session's challenge and compares it with answer,
// ignoring case and surrounding space. The challenge is gone afterwards
// whatever the outcome. A missing or expired challenge yields
// ErrChallengeExpired, a wrong answer ErrChallengeMismatch.
func (s *CaptchaService) Check(ctx context.Context, sessionKey, answer string) error {
	if sessionKey == "" {
		return ErrChallengeExpired
	}

	sctx, cancel := storeCtx(ctx, s.StoreTimeout)
	defer cancel()

	c, err := s.Store.Challenges().Take(sctx, sessionKey)
	if errors.Is(err, store.ErrNotFound) {
		return ErrChallengeExpired
	}
	if err != nil {
		return transient(err)
	}

	if c.Expired(s.now()) {
		return ErrChallengeExpired
	}
	if !strings.EqualFold(strings.TrimSpace(answer), c.Code) {
		return ErrChallengeMismatch
	}
	return nil
}

// Validate is Check reduced to a boolean. Only store failures are errors.
func (s *CaptchaService) Validate(ctx context.Context, sessionKey, answer string) (bool, error) {
	err := s.Check(ctx, sessionKey, answer)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrChallengeExpired), errors.Is(err, ErrChallengeMismatch):
		return false, nil
	}
	return false, err
}
