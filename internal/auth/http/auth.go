package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

// AuthHandler serves login, logout and self registration.
type AuthHandler struct {
	AuthService    *service.AuthService
	TokenService   *service.TokenService
	AccountService *service.AccountService
}

// HandleLogin handles POST /v1/auth/login
//
//	@Summary		Log in
//	@Description	Checks the captcha answer for the caller's session, then the credentials under the lockout policy.
//	@Description	Five consecutive failures lock the account for ten minutes; while locked the response is 423 with Retry-After.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			X-Captcha-Session	header		string					false	"Captcha session when the cookie is not sent"
//	@Param			request				body		authsdk.LoginRequest	true	"Credentials and captcha answer"
//	@Success		200					{object}	authsdk.LoginResponse	"Token and account summary"
//	@Failure		400					{object}	authsdk.ErrorResponse	"challenge_expired, challenge_mismatch or invalid_request"
//	@Failure		401					{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		403					{object}	authsdk.ErrorResponse	"account_disabled"
//	@Failure		423					{object}	authsdk.ErrorResponse	"account_locked"
//	@Failure		503					{object}	authsdk.ErrorResponse	"temporarily_unavailable"
//	@Router			/v1/auth/login [post].
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.AuthService.Login(r.Context(), service.LoginRequest{
		Identifier:      req.Identifier,
		Secret:          req.Secret,
		SessionKey:      captchaSession(r),
		ChallengeAnswer: req.ChallengeAnswer,
		OTP:             req.OTP,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// The challenge is spent either way; drop the cookie.
	http.SetCookie(w, &http.Cookie{Name: captchaCookie, Path: "/", MaxAge: -1})

	httpx.WriteJSON(w, http.StatusOK, authsdk.LoginResponse{
		Token:     res.Token,
		TokenType: "Bearer",
		ExpiresIn: int(h.TokenService.Lifetime() / time.Second),
		UserID:    res.Account.ID,
		Username:  res.Account.Identifier,
		Email:     res.Account.Email,
		FullName:  res.Account.FullName,
		Role:      res.Account.Role.String(),
	})
}

// HandleLogout handles POST /v1/auth/logout
//
//	@Summary		Log out
//	@Description	Revokes the presented token. Later requests with it get 401 invalid_token.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Success		204
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/auth/logout [post].
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := httpx.ClaimsFromContext(r.Context())
	if !ok {
		authsdk.ErrInvalidToken.WriteError(w)
		return
	}
	if err := h.TokenService.Revoke(r.Context(), claims); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("logged out")
	w.WriteHeader(http.StatusNoContent)
}

// HandleRegister handles POST /v1/auth/register
//
//	@Summary		Register an account
//	@Description	Creates a user account. A verification link is sent to the email address.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.RegisterRequest		true	"New account"
//	@Success		201		{object}	authsdk.RegisterResponse	"Created"
//	@Failure		400		{object}	authsdk.ErrorResponse		"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse		"duplicate_identifier or duplicate_email"
//	@Router			/v1/auth/register [post].
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acct, _, err := h.AccountService.Register(r.Context(), service.RegisterRequest{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Phone:    req.Phone,
		FullName: req.FullName,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, authsdk.RegisterResponse{
		UserID:   acct.ID,
		Username: acct.Identifier,
		Email:    acct.Email,
		Message:  "registered; check your email to verify the address",
	})
}

// HandleVerifyEmail handles GET /v1/auth/verify-email
//
//	@Summary		Verify an email address
//	@Tags			Auth
//	@Produce		json
//	@Param			token	query		string					true	"Verification token from the email"
//	@Success		200		{object}	authsdk.MessageResponse	"Verified"
//	@Failure		400		{object}	authsdk.ErrorResponse	"Unknown, used or expired token"
//	@Router			/v1/auth/verify-email [get].
func (h *AuthHandler) HandleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.AccountService.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.MessageResponse{Message: "email verified"})
}

// HandleCheckUsername handles GET /v1/users/check-username
//
//	@Summary		Check username availability
//	@Tags			Users
//	@Produce		json
//	@Param			username	query		string							true	"Username"
//	@Success		200			{object}	authsdk.AvailabilityResponse	"Availability"
//	@Failure		400			{object}	authsdk.ErrorResponse			"Not a valid username"
//	@Router			/v1/users/check-username [get].
func (h *AuthHandler) HandleCheckUsername(w http.ResponseWriter, r *http.Request) {
	ok, err := h.AccountService.IdentifierAvailable(r.Context(), strings.TrimSpace(r.URL.Query().Get("username")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.AvailabilityResponse{Available: ok})
}

// HandleCheckEmail handles GET /v1/users/check-email
//
//	@Summary		Check email availability
//	@Tags			Users
//	@Produce		json
//	@Param			email	query		string							true	"Email address"
//	@Success		200		{object}	authsdk.AvailabilityResponse	"Availability"
//	@Failure		400		{object}	authsdk.ErrorResponse			"Not a valid address"
//	@Router			/v1/users/check-email [get].
func (h *AuthHandler) HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	ok, err := h.AccountService.EmailAvailable(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.AvailabilityResponse{Available: ok})
}
