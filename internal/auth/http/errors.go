package http

import (
	"errors"
	"net/http"

	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

var serviceErrors = []struct {
	err error
	api *authsdk.APIError
}{
	{service.ErrChallengeExpired, authsdk.ErrChallengeExpired},
	{service.ErrChallengeMismatch, authsdk.ErrChallengeMismatch},
	{service.ErrInvalidCredentials, authsdk.ErrInvalidCredentials},
	{service.ErrAccountDisabled, authsdk.ErrAccountDisabled},
	{service.ErrDuplicateIdentifier, authsdk.ErrDuplicateIdentifier},
	{service.ErrDuplicateEmail, authsdk.ErrDuplicateEmail},
	{service.ErrTokenExpired, authsdk.ErrTokenExpired},
	{service.ErrTokenInvalid, authsdk.ErrInvalidToken},
	{service.ErrNotFound, authsdk.ErrNotFound},
	{service.ErrInvalidTOTPCode, authsdk.ErrInvalidOTP},
	{service.ErrMFAAlreadyEnabled, authsdk.ErrMFAAlreadyEnabled},
	{service.ErrMFANotEnabled, authsdk.ErrMFANotEnabled},
	{service.ErrMFANotEnrolled, authsdk.ErrMFANotEnrolled},
	{service.ErrTransient, authsdk.ErrTemporarilyUnavailable},
}

// apiError maps a service error to its wire form. Unknown errors become
// server_error.
func apiError(err error) *authsdk.APIError {
	var locked *service.LockedError
	if errors.As(err, &locked) {
		return authsdk.ErrAccountLocked.WithRetryAfter(locked.RetryAfter)
	}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		return authsdk.ErrInvalidRequest.WithDescription(verr.Error())
	}

	for _, m := range serviceErrors {
		if errors.Is(err, m.err) {
			return m.api
		}
	}
	return authsdk.ErrServerError
}

// writeServiceError logs err at a level matching its class and writes the
// mapped response.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := apiError(err)
	log := slogx.FromContext(r.Context())

	switch {
	case apiErr.StatusCode >= 500:
		log.Error("request failed", "err", err)
	case apiErr.StatusCode == http.StatusUnauthorized, apiErr.StatusCode == http.StatusLocked:
		log.Info("request denied", "code", apiErr.Code)
	default:
		log.Debug("request rejected", "code", apiErr.Code, "err", err)
	}
	apiErr.WriteError(w)
}

// decodeBody reads a JSON body and writes invalid_request on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(w, r, dst); err != nil {
		slogx.FromContext(r.Context()).Debug("bad request body", "err", err)
		authsdk.ErrInvalidRequest.WithDescription(err.Error()).WriteError(w)
		return false
	}
	return true
}
