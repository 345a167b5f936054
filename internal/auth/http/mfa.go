package http

import (
	"net/http"

	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

// MFAHandler handles all MFA-related endpoints.
type MFAHandler struct {
	MFAService *service.MFAService
}

// HandleEnroll handles POST /v1/users/me/mfa
//
//	@Summary		Start TOTP enrolment
//	@Description	Generates a pending TOTP secret. It takes effect once confirmed with a valid code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MFAEnrollResponse	"Secret and otpauth URL"
//	@Failure		401	{object}	authsdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	authsdk.ErrorResponse		"mfa_already_enabled"
//	@Router			/v1/users/me/mfa [post].
func (h *MFAHandler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	e, err := h.MFAService.Enroll(r.Context(), httpx.UserIDFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, authsdk.MFAEnrollResponse{
		Secret:     e.Secret,
		OTPAuthURL: e.URL,
		Issuer:     e.Issuer,
		Account:    e.Account,
	})
}

// HandleConfirm handles POST /v1/users/me/mfa/confirm
//
//	@Summary		Confirm TOTP enrolment
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.MFACodeRequest	true	"Current TOTP code"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_otp"
//	@Failure		409	{object}	authsdk.ErrorResponse	"mfa_not_enrolled or mfa_already_enabled"
//	@Router			/v1/users/me/mfa/confirm [post].
func (h *MFAHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	var req authsdk.MFACodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.MFAService.Confirm(r.Context(), userID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("mfa enabled")
	w.WriteHeader(http.StatusNoContent)
}

// HandleDisable handles DELETE /v1/users/me/mfa
//
//	@Summary		Disable TOTP
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Param			request	body	authsdk.MFACodeRequest	true	"Current TOTP code"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_otp"
//	@Failure		409	{object}	authsdk.ErrorResponse	"mfa_not_enabled"
//	@Router			/v1/users/me/mfa [delete].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	var req authsdk.MFACodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	userID := httpx.UserIDFromContext(r.Context())
	if err := h.MFAService.Disable(r.Context(), userID, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	slogx.FromContext(r.Context()).Info("mfa disabled")
	w.WriteHeader(http.StatusNoContent)
}
