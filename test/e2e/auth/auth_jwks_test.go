package auth_test

import (
	"testing"
	"time"

	"github.com/shunines-eng/manage-system/pkg/authsdk"
	"github.com/shunines-eng/manage-system/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

// TestJWKSVerification verifies that tokens issued by the service can be
// verified offline using only the published JWKS:
// 1. Login with the seeded admin
// 2. Fetch JWKS
// 3. Verify the access token with a KeySet built from it
func TestJWKSVerification(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)

	session := performLogin(t, client, adminUsername, adminPassword)
	accessToken := session.AccessToken()

	jwksResp, err := client.GetJWKS(t.Context())
	require.NoError(t, err, "Should fetch JWKS successfully")
	require.NotEmpty(t, jwksResp.Keys, "JWKS should contain at least one key")

	keySet := jwtx.NewKeySet()
	for _, k := range jwtx.JWKS(*jwksResp).Keys {
		require.NoError(t, keySet.AddJWK(k), "Should load key %s", k.Kid)
	}

	verifier := jwtx.NewVerifier(keySet, "manage-system-auth")
	claims, err := verifier.Verify(accessToken)
	require.NoError(t, err, "Should verify access token successfully")

	require.NotEmpty(t, claims.Subject, "Subject should contain user ID")
	require.Equal(t, adminUsername, claims.Username)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, []string{"pwd"}, claims.AMR)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAtTime(), time.Minute)
	require.Equal(t, session.Login().UserID, claims.Subject)
}

// TestJWKSRejectsForeignIssuer verifies a verifier bound to another issuer
// refuses the service's tokens.
func TestJWKSRejectsForeignIssuer(t *testing.T) {
	baseURL, cleanup := setupAuthContainer(t)
	defer cleanup()

	client := authsdk.NewSDKClient(baseURL)
	session := performLogin(t, client, adminUsername, adminPassword)

	verifier, err := client.Verifier(t.Context(), "someone-else")
	require.NoError(t, err)
	_, err = verifier.Verify(session.AccessToken())
	require.Error(t, err)

	verifier, err = client.Verifier(t.Context(), "manage-system-auth")
	require.NoError(t, err)
	_, err = verifier.Verify(session.AccessToken())
	require.NoError(t, err)
}
