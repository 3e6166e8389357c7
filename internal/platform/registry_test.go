package platform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	p, err := Parse(" Twitter ")
	require.NoError(t, err)
	assert.Equal(t, Twitter, p)

	_, err = Parse("myspace")
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}

func TestDefaultRegistry(t *testing.T) {
	r := NewRegistry(DefaultConfigs(map[Platform]string{Twitter: "tw-client"})...)

	assert.Equal(t, All(), r.Platforms())

	tw, err := r.Get(Twitter)
	require.NoError(t, err)
	assert.Equal(t, "tw-client", tw.ClientID)
	assert.True(t, tw.UsePKCE)
	assert.Equal(t, 2*time.Hour, tw.DefaultLifetime)
	assert.Contains(t, tw.Scopes, "offline.access")

	li, err := r.Get(LinkedIn)
	require.NoError(t, err)
	assert.False(t, li.CanRefresh())
	assert.False(t, li.UsePKCE)

	fb, err := r.Get(Facebook)
	require.NoError(t, err)
	assert.False(t, fb.CanRefresh())

	for _, p := range All() {
		c, err := r.Get(p)
		require.NoError(t, err)
		assert.NotEmpty(t, c.AuthorizationURL, p)
		assert.NotEmpty(t, c.TokenURL, p)
		assert.NotEmpty(t, c.ProfileURL, p)
		assert.NotNil(t, c.Profile, p)
		assert.Equal(t, "code", c.ResponseType, p)
	}
}

func TestRegistry_GetReturnsCopy(t *testing.T) {
	r := NewRegistry(DefaultConfigs(nil)...)

	c, err := r.Get(Pinterest)
	require.NoError(t, err)
	c.Scopes[0] = "mutated"

	again, err := r.Get(Pinterest)
	require.NoError(t, err)
	assert.Equal(t, "read_public", again.Scopes[0])
}

func TestRegistry_Unknown(t *testing.T) {
	r := NewRegistry()
	_, err := r.Get(Instagram)
	assert.ErrorIs(t, err, ErrUnknownPlatform)
}
