package http

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/shunines-eng/manage-system/internal/auth/service"
	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
)

const captchaCookie = "captcha_session"

// captchaSession returns the session key from the X-Captcha-Session header
// or, failing that, the captcha_session cookie.
func captchaSession(r *http.Request) string {
	if s := strings.TrimSpace(r.Header.Get(authsdk.CaptchaSessionHeader)); s != "" {
		return s
	}
	if c, err := r.Cookie(captchaCookie); err == nil {
		return c.Value
	}
	return ""
}

type CaptchaHandler struct {
	CaptchaService *service.CaptchaService

	// SecureCookie marks the session cookie Secure; off only for plain
	// HTTP development setups.
	SecureCookie bool
}

// ServeHTTP handles GET /v1/captcha
//
//	@Summary		Issue a captcha
//	@Description	Issues a 4 character challenge bound to a session. The session is returned in the body and set as the captcha_session cookie;
//	@Description	clients without cookies send it back in the X-Captcha-Session header. Issuing again for the same session replaces the previous challenge.
//	@Tags			Auth
//	@Produce		json
//	@Success		200	{object}	authsdk.CaptchaResponse	"Session, PNG data URL and lifetime"
//	@Failure		429	{object}	authsdk.ErrorResponse	"Rate limited"
//	@Failure		503	{object}	authsdk.ErrorResponse	"Store unavailable"
//	@Router			/v1/captcha [get].
func (h *CaptchaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session := captchaSession(r)
	if session == "" {
		session = service.NewSessionKey()
	}

	c, img, err := h.CaptchaService.Issue(r.Context(), session)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	ttl := c.ExpiresAt.Sub(c.CreatedAt)
	http.SetCookie(w, &http.Cookie{
		Name:     captchaCookie,
		Value:    session,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   h.SecureCookie,
		SameSite: http.SameSiteStrictMode,
	})

	httpx.WriteJSON(w, http.StatusOK, authsdk.CaptchaResponse{
		Session:   session,
		Image:     "data:image/png;base64," + base64.StdEncoding.EncodeToString(img),
		ExpiresIn: int(ttl / time.Second),
	})
}
