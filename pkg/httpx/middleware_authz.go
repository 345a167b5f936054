package httpx

import (
	"net/http"
	"slices"
)

// RequireRole lets the request through only when the token's role claim is
// one of roles. Must run after AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "invalid_token", "missing bearer token")
				return
			}
			if !slices.Contains(roles, claims.Role) {
				w.Header().Set("WWW-Authenticate", `Bearer error="insufficient_scope"`)
				WriteJSON(w, http.StatusForbidden, ErrorBody{
					Code:        "insufficient_role",
					Description: "this operation requires a different role",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
