package http

import (
	"net/http"
	"time"

	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/httpx"
)

// jwksMaxAge bounds how long verifiers may cache the key set. Keys are
// only added at startup, so a restart is visible within this window.
const jwksMaxAge = 5 * time.Minute

// handleJWKS publishes the public half of every signing key so that
// services can verify login tokens offline.
//
//	@Summary		Get JWKS
//	@Description	Returns the public keys that verify issued login tokens. Cacheable for five minutes.
//	@Tags			well-known
//	@Produce		json
//	@Success		200	{object}	authsdk.JWKSResponse	"The JSON Web Key Set"
//	@Router			/.well-known/jwks.json [get].
func (r *Router) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteCachedJSON(w, jwksMaxAge, authsdk.JWKSResponse(r.keys.PublicJWKS()))
}
