package authsdk

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shunines-eng/manage-system/pkg/jwtx"
)

// GetJWKS retrieves the public keys that verify login tokens.
func (c *SDKClient) GetJWKS(ctx context.Context) (*JWKSResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/.well-known/jwks.json", "", nil, nil)
	if err != nil {
		return nil, err
	}

	var jwks JWKSResponse
	if err := decodeJSON(resp, &jwks, http.StatusOK); err != nil {
		return nil, err
	}
	return &jwks, nil
}

// Verifier fetches the JWKS and returns a verifier that checks tokens
// offline against it. issuer must match the service's configured issuer.
func (c *SDKClient) Verifier(ctx context.Context, issuer string) (*jwtx.KeySetVerifier, error) {
	jwks, err := c.GetJWKS(ctx)
	if err != nil {
		return nil, err
	}

	keys := jwtx.NewKeySet()
	for _, k := range jwks.Keys {
		if err := keys.AddJWK(k); err != nil {
			return nil, fmt.Errorf("load key %s: %w", k.Kid, err)
		}
	}
	return jwtx.NewVerifier(keys, issuer), nil
}
