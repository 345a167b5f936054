package http

import (
	"net/http"

	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
)

// ProfileHandler serves the caller's own account.
type ProfileHandler struct {
	AccountService *service.AccountService
}

// HandleGet handles GET /v1/users/me
//
//	@Summary		Current user
//	@Tags			Users
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.UserResponse	"The caller's account"
//	@Failure		401	{object}	authsdk.ErrorResponse	"Invalid or missing access token"
//	@Router			/v1/users/me [get].
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	acct, err := h.AccountService.Profile(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(acct))
}

// HandleUpdate handles PUT /v1/users/me
//
//	@Summary		Update profile
//	@Description	Changes full name, phone, email, age or gender. A new email must be verified again.
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.UpdateProfileRequest	true	"Fields to change"
//	@Success		200		{object}	authsdk.UserResponse			"Updated account"
//	@Failure		400		{object}	authsdk.ErrorResponse			"invalid_request"
//	@Failure		409		{object}	authsdk.ErrorResponse			"duplicate_email"
//	@Router			/v1/users/me [put].
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.UpdateProfileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	acct, err := h.AccountService.UpdateProfile(r.Context(), httpx.UserIDFromContext(r.Context()), toProfileUpdate(req))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(acct))
}

// HandleChangePassword handles PUT /v1/users/me/password
//
//	@Summary		Change password
//	@Tags			Users
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.ChangePasswordRequest	true	"Current and new password"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Router			/v1/users/me/password [put].
func (h *ProfileHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ChangePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}

	err := h.AccountService.ChangePassword(r.Context(), httpx.UserIDFromContext(r.Context()),
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
