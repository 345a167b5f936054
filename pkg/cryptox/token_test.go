package cryptox_test

import (
	"crypto/x509"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/shunines-eng/manage-system/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tok, err := cryptox.GenerateToken(cryptox.TokenSize256)
	require.NoError(t, err)
	require.Len(t, tok, 43)
	require.NotContains(t, tok, "=")

	_, err = cryptox.GenerateToken(0)
	require.Error(t, err)
}

func TestFingerprintToken(t *testing.T) {
	a := cryptox.FingerprintToken("abc")
	require.Equal(t, a, cryptox.FingerprintToken("abc"))
	require.NotEqual(t, a, cryptox.FingerprintToken("abd"))
	require.Len(t, a, 43)
}

func TestGenerateCode(t *testing.T) {
	const alphabet = "ABC123"
	code, err := cryptox.GenerateCode(alphabet, 64)
	require.NoError(t, err)
	require.Len(t, code, 64)
	for _, r := range code {
		require.True(t, strings.ContainsRune(alphabet, r), "unexpected rune %q", r)
	}

	_, err = cryptox.GenerateCode("", 4)
	require.Error(t, err)
	_, err = cryptox.GenerateCode(alphabet, 0)
	require.Error(t, err)
}

func TestGeneratePassword(t *testing.T) {
	a, err := cryptox.GeneratePassword()
	require.NoError(t, err)
	b, err := cryptox.GeneratePassword()
	require.NoError(t, err)
	require.Len(t, a, 16)
	require.NotEqual(t, a, b)
}

func TestGenerateKeys(t *testing.T) {
	for name, gen := range map[string]func() ([]byte, error){
		"ed25519": cryptox.GenerateEd25519Key,
		"p256":    cryptox.GenerateES256Key,
	} {
		t.Run(name, func(t *testing.T) {
			pemBytes, err := gen()
			require.NoError(t, err)

			block, _ := pem.Decode(pemBytes)
			require.NotNil(t, block)
			require.Equal(t, "PRIVATE KEY", block.Type)

			_, err = x509.ParsePKCS8PrivateKey(block.Bytes)
			require.NoError(t, err)
		})
	}
}
