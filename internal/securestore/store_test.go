package securestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) (*Store, *MemoryBackend) {
	t.Helper()
	sealer, err := NewAESSealer([]byte(testKey))
	require.NoError(t, err)
	backend := NewMemoryBackend()
	return NewStore(backend, sealer), backend
}

func ptr(t time.Time) *time.Time { return &t }

func TestIsExpired_Buffer(t *testing.T) {
	expiry := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	token := &models.OAuthToken{AccessToken: "a", ExpiresAt: &expiry}

	assert.True(t, IsExpired(token, expiry.Add(-5*time.Minute)))
	assert.False(t, IsExpired(token, expiry.Add(-5*time.Minute-time.Second)))
	assert.True(t, IsExpired(token, expiry.Add(time.Hour)))
}

func TestIsExpired_NoExpiry(t *testing.T) {
	assert.False(t, IsExpired(&models.OAuthToken{AccessToken: "a"}, time.Now().Add(100*365*24*time.Hour)))
	assert.False(t, IsExpired(nil, time.Now()))
}

func TestStore_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	token := &models.OAuthToken{
		AccessToken:  "secret-access",
		RefreshToken: "secret-refresh",
		ExpiresAt:    ptr(time.Now().Add(time.Hour).UTC().Truncate(time.Second)),
		TokenType:    "Bearer",
		UserID:       "42",
	}
	require.NoError(t, store.StoreToken(ctx, 7, platform.Twitter, token))

	raw, err := backend.Get(ctx, "crosspost:7:crosspost_twitter_token")
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret-access")

	got, err := store.GetToken(ctx, 7, platform.Twitter)
	require.NoError(t, err)
	assert.Equal(t, token, got)

	other, err := store.GetToken(ctx, 8, platform.Twitter)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, store.DeleteToken(ctx, 7, platform.Twitter))
	got, err = store.GetToken(ctx, 7, platform.Twitter)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_AddConnectedAccountReplacesPlatform(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.AddConnectedAccount(ctx, 1, models.ConnectedAccount{ID: "instagram_1", Platform: "instagram", Username: "first"}))
	require.NoError(t, store.AddConnectedAccount(ctx, 1, models.ConnectedAccount{ID: "twitter_9", Platform: "twitter", Username: "tw"}))
	require.NoError(t, store.AddConnectedAccount(ctx, 1, models.ConnectedAccount{ID: "instagram_2", Platform: "instagram", Username: "second"}))

	accounts, err := store.GetConnectedAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "twitter", accounts[0].Platform)
	assert.Equal(t, "second", accounts[1].Username)
}

func TestStore_RemoveConnectedAccountIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	token := &models.OAuthToken{AccessToken: "a"}
	account := models.ConnectedAccount{ID: "facebook_1", Platform: "facebook"}
	require.NoError(t, store.SaveConnection(ctx, 3, platform.Facebook, token, account))

	for i := 0; i < 2; i++ {
		require.NoError(t, store.RemoveConnectedAccount(ctx, 3, platform.Facebook))

		got, err := store.GetToken(ctx, 3, platform.Facebook)
		require.NoError(t, err)
		assert.Nil(t, got)

		accounts, err := store.GetConnectedAccounts(ctx, 3)
		require.NoError(t, err)
		assert.Empty(t, accounts)
	}
}

type failingBackend struct {
	*MemoryBackend
	failApply bool
}

func (f *failingBackend) Apply(ctx context.Context, ops ...Op) error {
	if f.failApply {
		return errors.New("disk full")
	}
	return f.MemoryBackend.Apply(ctx, ops...)
}

func TestStore_SaveConnectionIsAtomic(t *testing.T) {
	ctx := context.Background()
	backend := &failingBackend{MemoryBackend: NewMemoryBackend()}
	store := NewStore(backend, ObfuscatingSealer{})

	old := &models.OAuthToken{AccessToken: "old"}
	require.NoError(t, store.SaveConnection(ctx, 1, platform.LinkedIn, old, models.ConnectedAccount{Platform: "linkedin", Username: "old"}))

	backend.failApply = true
	err := store.SaveConnection(ctx, 1, platform.LinkedIn, &models.OAuthToken{AccessToken: "new"}, models.ConnectedAccount{Platform: "linkedin", Username: "new"})
	require.Error(t, err)

	got, err := store.GetToken(ctx, 1, platform.LinkedIn)
	require.NoError(t, err)
	assert.Equal(t, "old", got.AccessToken)

	accounts, err := store.GetConnectedAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "old", accounts[0].Username)
}

func TestStore_StoreTokenMirrorsAccountExpiry(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	first := ptr(time.Now().Add(time.Hour).UTC().Truncate(time.Second))
	require.NoError(t, store.SaveConnection(ctx, 1, platform.Pinterest,
		&models.OAuthToken{AccessToken: "a", ExpiresAt: first},
		models.ConnectedAccount{Platform: "pinterest", ExpiresAt: first}))

	second := ptr(first.Add(24 * time.Hour))
	require.NoError(t, store.StoreToken(ctx, 1, platform.Pinterest, &models.OAuthToken{AccessToken: "b", ExpiresAt: second}))

	accounts, err := store.GetConnectedAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, second.Equal(*accounts[0].ExpiresAt))
}

func TestStore_ClearAllSecureData(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	for _, p := range platform.All() {
		require.NoError(t, store.SaveConnection(ctx, 5, p, &models.OAuthToken{AccessToken: "x"}, models.ConnectedAccount{Platform: string(p)}))
	}
	require.NoError(t, store.SaveConnection(ctx, 6, platform.Twitter, &models.OAuthToken{AccessToken: "y"}, models.ConnectedAccount{Platform: "twitter"}))

	require.NoError(t, store.ClearAllSecureData(ctx, 5))

	for _, p := range platform.All() {
		got, err := store.GetToken(ctx, 5, p)
		require.NoError(t, err)
		assert.Nil(t, got)
	}
	// user 6 keeps its token and account list
	assert.Equal(t, 2, backend.Len())
}

func TestStore_ExpiringTokens(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	now := time.Now()

	require.NoError(t, store.StoreToken(ctx, 1, platform.Twitter, &models.OAuthToken{AccessToken: "a", ExpiresAt: ptr(now.Add(10 * time.Minute))}))
	require.NoError(t, store.StoreToken(ctx, 2, platform.Instagram, &models.OAuthToken{AccessToken: "b", ExpiresAt: ptr(now.Add(48 * time.Hour))}))
	require.NoError(t, store.StoreToken(ctx, 3, platform.LinkedIn, &models.OAuthToken{AccessToken: "c"}))
	// already lapsed
	require.NoError(t, store.StoreToken(ctx, 4, platform.LinkedIn, &models.OAuthToken{AccessToken: "d", ExpiresAt: ptr(now.Add(-time.Hour))}))

	refs, err := store.ExpiringTokens(ctx, now, now.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []TokenRef{{UserID: 1, Platform: platform.Twitter}}, refs)
}

func TestStore_UnreadableTokenIsTreatedAsMissing(t *testing.T) {
	ctx := context.Background()
	store, backend := newTestStore(t)

	sealed, err := store.sealer.Seal([]byte("{not-json"))
	require.NoError(t, err)
	require.NoError(t, backend.Apply(ctx, Put(tokenKey(1, platform.Facebook), sealed, nil)))

	got, err := store.GetToken(ctx, 1, platform.Facebook)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseTokenKey(t *testing.T) {
	ref, ok := parseTokenKey("crosspost:12:crosspost_linkedin_token")
	require.True(t, ok)
	assert.Equal(t, TokenRef{UserID: 12, Platform: platform.LinkedIn}, ref)

	_, ok = parseTokenKey("crosspost:12:crosspost_connected_accounts")
	assert.False(t, ok)
	_, ok = parseTokenKey("other:12:crosspost_twitter_token")
	assert.False(t, ok)
}

func TestStore_SettingsAreWipedOnLogout(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	got, err := store.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)

	settings := &models.Settings{
		DefaultPlatforms: []string{"twitter", "linkedin"},
		Targets:          models.PublishTargets{LinkedInPersonURN: "urn:li:person:abc"},
	}
	require.NoError(t, store.StoreSettings(ctx, 5, settings))

	got, err = store.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, settings.DefaultPlatforms, got.DefaultPlatforms)
	assert.Equal(t, "urn:li:person:abc", got.Targets.LinkedInPersonURN)

	require.NoError(t, store.ClearAllSecureData(ctx, 5))
	got, err = store.GetSettings(ctx, 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}
