package securestore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/pkg/utils"
)

func TestAESSealer(t *testing.T) {
	s, err := NewAESSealer([]byte(testKey))
	require.NoError(t, err)
	assert.True(t, s.Protected())

	sealed, err := s.Seal([]byte("hello"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "hello")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(opened))

	other, err := NewAESSealer([]byte("fedcba9876543210"))
	require.NoError(t, err)
	_, err = other.Open(sealed)
	assert.Error(t, err)

	_, err = s.Open([]byte("AAAA"))
	assert.ErrorIs(t, err, utils.ErrCiphertextTooShort)
}

func TestNewSealer(t *testing.T) {
	s, err := NewSealer("")
	require.NoError(t, err)
	assert.False(t, s.Protected())

	_, err = NewSealer("short")
	assert.ErrorIs(t, err, ErrInvalidKey)

	s, err = NewSealer(testKey)
	require.NoError(t, err)
	assert.True(t, s.Protected())
}

func TestObfuscatingSealer(t *testing.T) {
	var s ObfuscatingSealer
	sealed, err := s.Seal([]byte(`{"access_token":"x"}`))
	require.NoError(t, err)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, `{"access_token":"x"}`, string(opened))

	_, err = s.Open([]byte("***"))
	assert.Error(t, err)
}
