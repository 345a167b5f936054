package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/shunines-eng/manage-system/pkg/slogx"
)

// TokenVerifier verifies a bearer token. The context lets implementations
// consult a revocation list.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (jwtx.Claims, error)
}

// AuthnMiddleware rejects requests without a valid bearer token and stores
// the claims in the request context.
func AuthnMiddleware(v TokenVerifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			raw, ok := BearerToken(r)
			if !ok {
				writeBearerError(w, "invalid_token", "missing bearer token")
				return
			}

			claims, err := v.Verify(ctx, raw)
			if err != nil {
				code, desc := "invalid_token", "token verification failed"
				if errors.Is(err, jwtx.ErrExpired) {
					code, desc = "token_expired", "token expired"
				}
				slogx.FromContext(ctx).Debug("bearer token rejected", "err", err)
				writeBearerError(w, code, desc)
				return
			}

			ctx = ContextWithClaims(ctx, claims)
			ctx = slogx.With(ctx, "sub", claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "Bearer ") {
		return "", false
	}
	tok := strings.TrimSpace(h[7:])
	return tok, tok != ""
}

// writeBearerError follows RFC 6750 for the header; the JSON body carries
// the finer grained code.
func writeBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteJSON(w, http.StatusUnauthorized, ErrorBody{Code: code, Description: desc})
}
