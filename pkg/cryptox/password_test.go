package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cryptox")
	if err != nil {
		panic(err)
	}
	SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

func TestHashPassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"simple", "password123"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"long", strings.Repeat("a", 100)},
		{"empty", ""},
		{"unicode", "пароль密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := HashPassword(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))
			require.Len(t, strings.Split(hash, "$"), 6)

			require.NoError(t, VerifyPassword(tt.password, hash))
			require.ErrorIs(t, VerifyPassword(tt.password+"x", hash), ErrPasswordMismatch)
		})
	}
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	a, err := HashPassword("same")
	require.NoError(t, err)
	b, err := HashPassword("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerifyPassword_Malformed(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"wrong algo":    "$argon2i$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"wrong version": "$argon2id$v=16$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"bad params":    "$argon2id$v=19$m=x,t=2,p=1$c2FsdA$aGFzaA",
		"bad salt":      "$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"missing part":  "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA",
	}
	for name, encoded := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, VerifyPassword("pw", encoded), ErrMalformedHash)
		})
	}
}

func TestPepperChangesHash(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	old := GetPepper()
	t.Cleanup(func() {
		pepperMu.Lock()
		pepper = old
		pepperMu.Unlock()
	})

	pepperMu.Lock()
	pepper = "a-different-pepper"
	pepperMu.Unlock()

	require.ErrorIs(t, VerifyPassword("secret", hash), ErrPasswordMismatch)
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("pw")
	require.NoError(t, err)
	require.False(t, NeedsRehash(hash))

	weak := strings.Replace(hash, "m=19456,t=2", "m=4096,t=1", 1)
	require.True(t, NeedsRehash(weak))
	require.True(t, NeedsRehash("garbage"))
}

func TestBurnVerifyDoesNotPanic(t *testing.T) {
	require.NotPanics(t, func() { BurnVerify("whatever") })
}

func TestPepperPersisted(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "pepper")

	first, err := loadOrGeneratePepper(path)
	require.NoError(t, err)
	second, err := loadOrGeneratePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = loadOrGeneratePepper(path)
	require.Error(t, err)
}
