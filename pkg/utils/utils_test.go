package utils

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecrypt(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	sealed, err := Encrypt(key, []byte("access-token"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "access-token")

	again, err := Encrypt(key, []byte("access-token"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := Decrypt(key, sealed)
	require.NoError(t, err)
	assert.Equal(t, "access-token", string(plain))

	_, err = Decrypt(key, []byte("AAAA"))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	_, err = Decrypt(key, []byte("***"))
	assert.Error(t, err)

	_, err = Decrypt([]byte("fedcba9876543210fedcba9876543210"), sealed)
	assert.Error(t, err)

	_, err = Encrypt([]byte("short"), []byte("x"))
	assert.Error(t, err)
}

func TestGenerateRandomKey(t *testing.T) {
	k, err := GenerateRandomKey(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(k)
	require.NoError(t, err)
	assert.Len(t, raw, 32)
}

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateToken("secret", "17", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken("secret", token)
	require.NoError(t, err)
	assert.Equal(t, "17", claims.UserID)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)

	expired, err := GenerateToken("secret", "17", -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken("secret", expired)
	assert.Error(t, err)
}
