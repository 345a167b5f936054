package authsdk

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// ErrSessionExpired is returned by Session methods once the token's
// lifetime has passed. Tokens are not refreshed; log in again.
var ErrSessionExpired = errors.New("authsdk: session token expired")

// Session is an authenticated session. It is safe for concurrent use; its
// fields never change after creation.
type Session struct {
	client    *SDKClient
	token     string
	expiresAt time.Time
	login     LoginResponse
}

func newSession(client *SDKClient, login *LoginResponse) *Session {
	return &Session{
		client:    client,
		token:     login.Token,
		expiresAt: time.Now().Add(time.Duration(login.ExpiresIn) * time.Second),
		login:     *login,
	}
}

func (s *Session) AccessToken() string  { return s.token }
func (s *Session) ExpiresAt() time.Time { return s.expiresAt }
func (s *Session) Login() LoginResponse { return s.login }
func (s *Session) IsAdmin() bool        { return s.login.Role == "admin" }
func (s *Session) Expired() bool        { return !time.Now().Before(s.expiresAt) }

func (s *Session) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	if s.Expired() {
		return nil, ErrSessionExpired
	}
	return s.client.doRequest(ctx, method, path, s.token, body, nil)
}

// Logout revokes the session token on the server.
func (s *Session) Logout(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/v1/auth/logout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/v1/users/me", nil)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodPut, "/v1/users/me", req)
	if err != nil {
		return nil, err
	}

	var user UserResponse
	if err := decodeJSON(resp, &user, http.StatusOK); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Session) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	resp, err := s.do(ctx, http.MethodPut, "/v1/users/me/password", req)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// EnrollMFA starts TOTP enrolment. Confirm it with ConfirmMFA.
func (s *Session) EnrollMFA(ctx context.Context) (*MFAEnrollResponse, error) {
	resp, err := s.do(ctx, http.MethodPost, "/v1/users/me/mfa", nil)
	if err != nil {
		return nil, err
	}

	var enroll MFAEnrollResponse
	if err := decodeJSON(resp, &enroll, http.StatusOK); err != nil {
		return nil, err
	}
	return &enroll, nil
}

func (s *Session) ConfirmMFA(ctx context.Context, code string) error {
	resp, err := s.do(ctx, http.MethodPost, "/v1/users/me/mfa/confirm", MFACodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) DisableMFA(ctx context.Context, code string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/v1/users/me/mfa", MFACodeRequest{Code: code})
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}
