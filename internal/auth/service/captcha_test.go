package service

import (
	"bytes"
	"context"
	"image/png"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCaptcha_CaseInsensitiveSingleUse(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)
	session := NewSessionKey()

	c, img, err := e.captcha.Issue(ctx, session)
	require.NoError(t, err)
	require.Equal(t, "AB12", c.Code)
	require.Equal(t, e.clock.Now().Add(DefaultCaptchaTTL), c.ExpiresAt)
	require.NotEmpty(t, img)

	ok, err := e.captcha.Validate(ctx, session, " ab12 ")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = e.captcha.Validate(ctx, session, "AB12")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCaptcha_Check(t *testing.T) {
	ctx := context.Background()
	e := newTestEnv(t)

	t.Run("mismatch consumes the challenge", func(t *testing.T) {
		session := NewSessionKey()
		_, _, err := e.captcha.Issue(ctx, session)
		require.NoError(t, err)

		require.ErrorIs(t, e.captcha.Check(ctx, session, "AB13"), ErrChallengeMismatch)
		require.ErrorIs(t, e.captcha.Check(ctx, session, "AB12"), ErrChallengeExpired)
	})

	t.Run("expires after ttl", func(t *testing.T) {
		session := NewSessionKey()
		_, _, err := e.captcha.Issue(ctx, session)
		require.NoError(t, err)

		e.clock.Advance(DefaultCaptchaTTL)
		require.ErrorIs(t, e.captcha.Check(ctx, session, "AB12"), ErrChallengeExpired)
	})

	t.Run("reissue replaces", func(t *testing.T) {
		session := NewSessionKey()
		e.captcha.FixedCode = "OLD1"
		_, _, err := e.captcha.Issue(ctx, session)
		require.NoError(t, err)
		e.captcha.FixedCode = "NEW2"
		_, _, err = e.captcha.Issue(ctx, session)
		require.NoError(t, err)
		e.captcha.FixedCode = "AB12"

		require.ErrorIs(t, e.captcha.Check(ctx, session, "OLD1"), ErrChallengeMismatch)
	})

	t.Run("empty session", func(t *testing.T) {
		_, _, err := e.captcha.Issue(ctx, " ")
		require.ErrorIs(t, err, ErrInvalidInput)
		require.ErrorIs(t, e.captcha.Check(ctx, "", "AB12"), ErrChallengeExpired)
	})
}

func TestCaptcha_RandomCodes(t *testing.T) {
	e := newTestEnv(t)
	e.captcha.FixedCode = ""

	c, _, err := e.captcha.Issue(context.Background(), NewSessionKey())
	require.NoError(t, err)
	require.Len(t, c.Code, CaptchaLength)
	for _, r := range c.Code {
		require.Contains(t, CaptchaAlphabet, string(r))
	}
}

func TestRenderCaptcha(t *testing.T) {
	raw, err := RenderCaptcha("X7QZ", rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, CaptchaWidth, img.Bounds().Dx())
	require.Equal(t, CaptchaHeight, img.Bounds().Dy())

	again, err := RenderCaptcha("X7QZ", rand.New(rand.NewPCG(1, 2)))
	require.NoError(t, err)
	require.Equal(t, raw, again)
}
