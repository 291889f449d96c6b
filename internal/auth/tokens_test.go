package auth

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := LoadOrGenerateKey(t.TempDir())
	require.NoError(t, err)
	return key
}

func TestTokenIssuers(t *testing.T) {
	for _, format := range []string{FormatJWT, FormatPaseto} {
		t.Run(format, func(t *testing.T) {
			key := testKey(t)

			issuer, err := NewTokenIssuer(format, key, time.Hour)
			require.NoError(t, err)
			assert.Equal(t, time.Hour, issuer.Duration())

			token, err := issuer.Issue("5f1d7f3e9b1e8a3c4d2b1a09", "test1@gmail.com")
			require.NoError(t, err)

			claims, err := issuer.Verify(token)
			require.NoError(t, err)
			assert.Equal(t, "5f1d7f3e9b1e8a3c4d2b1a09", claims.UserID)
			assert.Equal(t, "test1@gmail.com", claims.Email)
			assert.NotEmpty(t, claims.TokenID)
			assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt, 5*time.Second)
		})
	}
}

func TestTokenIssuers_Expired(t *testing.T) {
	for _, format := range []string{FormatJWT, FormatPaseto} {
		t.Run(format, func(t *testing.T) {
			issuer, err := NewTokenIssuer(format, testKey(t), -time.Minute)
			require.NoError(t, err)

			token, err := issuer.Issue("user", "user@example.com")
			require.NoError(t, err)

			_, err = issuer.Verify(token)
			assert.ErrorIs(t, err, ErrTokenExpired)
		})
	}
}

func TestTokenIssuers_WrongKey(t *testing.T) {
	for _, format := range []string{FormatJWT, FormatPaseto} {
		t.Run(format, func(t *testing.T) {
			issuer, err := NewTokenIssuer(format, testKey(t), time.Hour)
			require.NoError(t, err)
			other, err := NewTokenIssuer(format, testKey(t), time.Hour)
			require.NoError(t, err)

			token, err := issuer.Issue("user", "user@example.com")
			require.NoError(t, err)

			_, err = other.Verify(token)
			assert.ErrorIs(t, err, ErrTokenInvalid)

			_, err = issuer.Verify("garbage")
			assert.ErrorIs(t, err, ErrTokenInvalid)
		})
	}
}

func TestJWTIssuer_RejectsOtherAlgorithms(t *testing.T) {
	issuer, err := NewJWTIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwtClaims{UserID: "user"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = issuer.Verify(unsigned)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestNewTokenIssuer_UnknownFormat(t *testing.T) {
	_, err := NewTokenIssuer("saml", testKey(t), time.Hour)
	require.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"BEARER  abc ", "abc", true},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := ExtractBearer(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}

func TestLoadOrGenerateKey_Persists(t *testing.T) {
	dir := t.TempDir()

	first, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Len(t, first, keyLength)

	second, err := LoadOrGenerateKey(dir)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	info, err := os.Stat(filepath.Join(dir, "auth.key"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrGenerateKey_RejectsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.key"), []byte("short"), 0o600))

	_, err := LoadOrGenerateKey(dir)
	require.Error(t, err)
}

func TestKeyFromSecret(t *testing.T) {
	assert.Len(t, KeyFromSecret("my secret"), keyLength)
	assert.Equal(t, KeyFromSecret("my secret"), KeyFromSecret("my secret"))

	hexSecret := "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"
	key := KeyFromSecret(hexSecret)
	assert.Equal(t, byte(0x00), key[0])
	assert.Equal(t, byte(0x11), key[1])
}
