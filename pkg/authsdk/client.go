package authsdk

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaSessionHeader carries the captcha session for clients that do not
// keep cookies.
const CaptchaSessionHeader = "X-Captcha-Session"

// SDKClient is a client for the manage-system auth service. It covers the
// public endpoints and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// GetCaptcha issues a challenge. Pass the returned Session to Login.
func (c *SDKClient) GetCaptcha(ctx context.Context) (*CaptchaResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/captcha", "", nil, nil)
	if err != nil {
		return nil, err
	}

	var captcha CaptchaResponse
	if err := decodeJSON(resp, &captcha, http.StatusOK); err != nil {
		return nil, err
	}
	return &captcha, nil
}

// Login answers the challenge held by captchaSession and authenticates.
// A locked account yields an *APIError with RetryAfter set.
func (c *SDKClient) Login(ctx context.Context, captchaSession string, req LoginRequest) (*Session, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/login", "", req, map[string]string{
		CaptchaSessionHeader: captchaSession,
	})
	if err != nil {
		return nil, err
	}

	var login LoginResponse
	if err := decodeJSON(resp, &login, http.StatusOK); err != nil {
		return nil, err
	}
	return newSession(c, &login), nil
}

func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/auth/register", "", req, nil)
	if err != nil {
		return nil, err
	}

	var reg RegisterResponse
	if err := decodeJSON(resp, &reg, http.StatusCreated); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *SDKClient) VerifyEmail(ctx context.Context, token string) error {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/auth/verify-email?token="+url.QueryEscape(token), "", nil, nil)
	if err != nil {
		return err
	}

	var msg MessageResponse
	return decodeJSON(resp, &msg, http.StatusOK)
}

func (c *SDKClient) CheckUsername(ctx context.Context, username string) (bool, error) {
	return c.checkAvailable(ctx, "/v1/users/check-username?username="+url.QueryEscape(username))
}

func (c *SDKClient) CheckEmail(ctx context.Context, email string) (bool, error) {
	return c.checkAvailable(ctx, "/v1/users/check-email?email="+url.QueryEscape(email))
}

func (c *SDKClient) checkAvailable(ctx context.Context, path string) (bool, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, path, "", nil, nil)
	if err != nil {
		return false, err
	}

	var avail AvailabilityResponse
	if err := decodeJSON(resp, &avail, http.StatusOK); err != nil {
		return false, err
	}
	return avail.Available, nil
}

// NewSessionFromToken wraps a token obtained elsewhere.
func (c *SDKClient) NewSessionFromToken(token string, expiresIn int) *Session {
	return newSession(c, &LoginResponse{Token: token, TokenType: "Bearer", ExpiresIn: expiresIn})
}
