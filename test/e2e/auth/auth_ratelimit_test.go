package auth_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/stretchr/testify/require"
)

// TestRateLimitLoginEndpoint verifies login is limited per address and
// identifier (strict profile: 10 per minute, burst 10).
func TestRateLimitLoginEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	// Without a captcha session every call fails fast with
	// challenge_expired, which still spends a token.
	req := authsdk.LoginRequest{Identifier: "mallory", Secret: "x", ChallengeAnswer: "x"}
	for i := range 10 {
		_, err := client.Login(ctx, "", req)
		assertAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeChallengeExpired)
		t.Logf("request %d not limited", i+1)
	}

	_, err := client.Login(ctx, "", req)
	apiErr := assertAPIError(t, err, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
	require.Positive(t, apiErr.RetryAfter)

	// A different identifier has its own bucket.
	req.Identifier = "trent"
	_, err = client.Login(ctx, "", req)
	assertAPIError(t, err, http.StatusBadRequest, authsdk.ErrorCodeChallengeExpired)
}

// TestRateLimitCaptchaEndpoint verifies captcha issuance is limited.
func TestRateLimitCaptchaEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	var lastErr error
	for range 15 {
		if _, lastErr = client.GetCaptcha(t.Context()); lastErr != nil {
			break
		}
	}
	assertAPIError(t, lastErr, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
}

// TestRateLimitRegisterEndpoint verifies registration is strictly limited.
func TestRateLimitRegisterEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	bad := authsdk.RegisterRequest{Username: "x", Password: "x", Email: "x"}
	var lastErr error
	for range 11 {
		_, lastErr = client.Register(t.Context(), bad)
	}
	assertAPIError(t, lastErr, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited)
}

// TestRateLimitJWKSEndpoint verifies the JWKS endpoint has a high public limit.
func TestRateLimitJWKSEndpoint(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	for i := range 50 {
		jwks, err := client.GetJWKS(t.Context())
		require.NoError(t, err, "Request %d should not be rate limited", i+1)
		require.NotNil(t, jwks)
	}
}

// TestRateLimitHealthEndpoints verifies health check endpoints have lenient limits.
func TestRateLimitHealthEndpoints(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	for i := range 30 {
		health, err := client.GetLiveness(t.Context())
		require.NoError(t, err, "Liveness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)

		health, err = client.GetReadiness(t.Context())
		require.NoError(t, err, "Readiness request %d should not be rate limited", i+1)
		require.Equal(t, "ok", health.Status)
	}
}

// TestRateLimitResponseFormat verifies the 429 body and headers.
func TestRateLimitResponseFormat(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	httpClient := &http.Client{}
	body, err := json.Marshal(authsdk.LoginRequest{Identifier: "mallory"})
	require.NoError(t, err)

	post := func() *http.Response {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/v1/auth/login", bytes.NewReader(body))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	for range 10 {
		resp := post()
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	resp := post()
	defer resp.Body.Close()
	require.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("Retry-After"))
	require.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
	require.Equal(t, "1m0s", resp.Header.Get("X-RateLimit-Window"))

	var errResp authsdk.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&errResp))
	require.Equal(t, authsdk.ErrorCodeRateLimited, errResp.Error)
	require.NotEmpty(t, errResp.ErrorDescription)
}

// TestRateLimitConcurrentRequests verifies the limiter holds under
// concurrent load: exactly the burst gets through.
func TestRateLimitConcurrentRequests(t *testing.T) {
	baseURL, cleanup := setupAuthContainerWithDefaultRateLimits(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	ctx := t.Context()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		limited int
	)
	for range 20 {
		wg.Go(func() {
			_, err := client.Login(ctx, "", authsdk.LoginRequest{Identifier: "mallory"})
			var apiErr *authsdk.APIError
			if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
				mu.Lock()
				limited++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	require.GreaterOrEqual(t, limited, 9, "about half of 20 concurrent requests should be limited")
}
