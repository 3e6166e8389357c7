package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/securestore"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

func at(t time.Time) *time.Time { return &t }

func newTestTokenService(t *testing.T, now time.Time) (*tokenService, *securestore.Store, *mockProxy) {
	t.Helper()
	store := newTestStore(t)
	tp := &mockProxy{}
	registry := platform.NewRegistry(platform.DefaultConfigs(nil)...)
	return newTokenService(store, tp, registry, func() time.Time { return now }), store, tp
}

func TestTokenService_IsExpiredBuffer(t *testing.T) {
	expiry := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	token := &models.OAuthToken{AccessToken: "a", ExpiresAt: &expiry}

	s, _, _ := newTestTokenService(t, expiry.Add(-5*time.Minute))
	assert.True(t, s.IsExpired(token))

	s, _, _ = newTestTokenService(t, expiry.Add(-5*time.Minute-time.Second))
	assert.False(t, s.IsExpired(token))

	assert.False(t, s.IsExpired(&models.OAuthToken{AccessToken: "forever"}))
}

func TestTokenService_RefreshWithoutRefreshTokenMakesNoCall(t *testing.T) {
	now := time.Now()
	s, _, tp := newTestTokenService(t, now)

	got := s.Refresh(context.Background(), 1, platform.LinkedIn, &models.OAuthToken{
		AccessToken: "a",
		ExpiresAt:   at(now.Add(-time.Hour)),
	})
	assert.Nil(t, got)
	tp.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestTokenService_FreshTokenIsReturnedAsIs(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s, store, tp := newTestTokenService(t, now)

	require.NoError(t, store.StoreToken(ctx, 1, platform.Twitter, &models.OAuthToken{
		AccessToken:  "fresh",
		RefreshToken: "rt",
		ExpiresAt:    at(now.Add(time.Hour)),
	}))

	token, ok := s.GetValidAccessToken(ctx, 1, platform.Twitter)
	assert.True(t, ok)
	assert.Equal(t, "fresh", token)
	assert.True(t, s.IsConnected(ctx, 1, platform.Twitter))
	tp.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
}

func TestTokenService_ExpiredTokenIsRefreshedAndReplaced(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s, store, tp := newTestTokenService(t, now)

	require.NoError(t, store.SaveConnection(ctx, 1, platform.Twitter, &models.OAuthToken{
		AccessToken:  "stale",
		RefreshToken: "rt-1",
		ExpiresAt:    at(now.Add(time.Minute)),
		Scope:        "tweet.read",
		UserID:       "42",
		Username:     "alice",
	}, models.ConnectedAccount{ID: "twitter_42", Platform: "twitter", UserID: "42", Username: "alice"}))

	tp.On("Refresh", mock.Anything, transfer.RefreshRequest{Platform: "twitter", RefreshToken: "rt-1"}).
		Return(&transfer.TokenResponse{AccessToken: "renewed", ExpiresIn: 7200}, nil).Once()

	token, ok := s.GetValidAccessToken(ctx, 1, platform.Twitter)
	require.True(t, ok)
	assert.Equal(t, "renewed", token)

	stored, err := store.GetToken(ctx, 1, platform.Twitter)
	require.NoError(t, err)
	assert.Equal(t, "renewed", stored.AccessToken)
	assert.Equal(t, "rt-1", stored.RefreshToken)
	assert.Equal(t, "tweet.read", stored.Scope)
	assert.Equal(t, "Bearer", stored.TokenType)
	assert.Equal(t, "42", stored.UserID)
	assert.Equal(t, "alice", stored.Username)
	require.NotNil(t, stored.ExpiresAt)
	assert.WithinDuration(t, now.Add(2*time.Hour), *stored.ExpiresAt, time.Second)

	accounts, err := store.GetConnectedAccounts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	require.NotNil(t, accounts[0].ExpiresAt)
	assert.WithinDuration(t, *stored.ExpiresAt, *accounts[0].ExpiresAt, time.Second)
	tp.AssertExpectations(t)
}

func TestTokenService_RefreshFallsBackToDefaultLifetime(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s, _, tp := newTestTokenService(t, now)

	tp.On("Refresh", mock.Anything, mock.Anything).
		Return(&transfer.TokenResponse{AccessToken: "renewed", RefreshToken: "rt-2"}, nil)

	token := s.Refresh(ctx, 1, platform.Pinterest, &models.OAuthToken{AccessToken: "a", RefreshToken: "rt-1"})
	require.NotNil(t, token)
	assert.Equal(t, "rt-2", token.RefreshToken)
	assert.WithinDuration(t, now.Add(30*24*time.Hour), *token.ExpiresAt, time.Second)
}

func TestTokenService_ProxyFailureMeansNoToken(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s, store, tp := newTestTokenService(t, now)

	require.NoError(t, store.StoreToken(ctx, 1, platform.Pinterest, &models.OAuthToken{
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    at(now.Add(-time.Hour)),
	}))
	tp.On("Refresh", mock.Anything, mock.Anything).Return(nil, errors.New("proxy down"))

	token, ok := s.GetValidAccessToken(ctx, 1, platform.Pinterest)
	assert.False(t, ok)
	assert.Empty(t, token)
	assert.False(t, s.IsConnected(ctx, 1, platform.Pinterest))
	assert.False(t, s.Renew(ctx, 1, platform.Pinterest))
}

func TestTokenService_MissingTokenIsNotConnected(t *testing.T) {
	s, _, _ := newTestTokenService(t, time.Now())
	assert.False(t, s.IsConnected(context.Background(), 9, platform.Instagram))
	assert.False(t, s.Renew(context.Background(), 9, platform.Instagram))
}

type brokenBackend struct{}

func (brokenBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, errors.New("disk on fire")
}

func (brokenBackend) Apply(ctx context.Context, ops ...securestore.Op) error {
	return errors.New("disk on fire")
}

func TestTokenService_StorageErrorDegradesToNotConnected(t *testing.T) {
	sealer, err := securestore.NewAESSealer([]byte(testSealKey))
	require.NoError(t, err)
	store := securestore.NewStore(brokenBackend{}, sealer)
	s := newTokenService(store, &mockProxy{}, platform.NewRegistry(), time.Now)

	token, ok := s.GetValidAccessToken(context.Background(), 1, platform.Twitter)
	assert.False(t, ok)
	assert.Empty(t, token)
}

func TestTokenService_ConcurrentRefreshHitsProxyOnce(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s, store, tp := newTestTokenService(t, now)

	require.NoError(t, store.StoreToken(ctx, 1, platform.Twitter, &models.OAuthToken{
		AccessToken:  "stale",
		RefreshToken: "single-use",
		ExpiresAt:    at(now.Add(-time.Minute)),
	}))
	tp.On("Refresh", mock.Anything, mock.Anything).
		After(50*time.Millisecond).
		Return(&transfer.TokenResponse{AccessToken: "renewed", RefreshToken: "next", ExpiresIn: 7200}, nil)

	var wg sync.WaitGroup
	got := make([]string, 8)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i], _ = s.GetValidAccessToken(ctx, 1, platform.Twitter)
		}(i)
	}
	wg.Wait()

	for _, token := range got {
		assert.Equal(t, "renewed", token)
	}
	tp.AssertNumberOfCalls(t, "Refresh", 1)
}

// slowProxy blocks refreshes until released and fails them if their context
// ends first.
type slowProxy struct {
	mockProxy
	started chan struct{}
	release chan struct{}
	calls   int32
}

func (p *slowProxy) Refresh(ctx context.Context, req transfer.RefreshRequest) (*transfer.TokenResponse, error) {
	if atomic.AddInt32(&p.calls, 1) == 1 {
		close(p.started)
	}
	select {
	case <-p.release:
		return &transfer.TokenResponse{AccessToken: "renewed", RefreshToken: "next", ExpiresIn: 7200}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestTokenService_AbandonedCallerDoesNotFailOthers(t *testing.T) {
	now := time.Now()
	store := newTestStore(t)
	tp := &slowProxy{started: make(chan struct{}), release: make(chan struct{})}
	s := newTokenService(store, tp, platform.NewRegistry(platform.DefaultConfigs(nil)...), func() time.Time { return now })

	require.NoError(t, store.StoreToken(context.Background(), 1, platform.Twitter, &models.OAuthToken{
		AccessToken:  "stale",
		RefreshToken: "rt",
		ExpiresAt:    at(now.Add(-time.Minute)),
	}))

	requestCtx, cancel := context.WithCancel(context.Background())
	first := make(chan bool)
	go func() {
		_, ok := s.GetValidAccessToken(requestCtx, 1, platform.Twitter)
		first <- ok
	}()

	<-tp.started
	cancel()
	assert.False(t, <-first)

	second := make(chan string)
	go func() {
		token, _ := s.GetValidAccessToken(context.Background(), 1, platform.Twitter)
		second <- token
	}()
	close(tp.release)

	assert.Equal(t, "renewed", <-second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&tp.calls))

	stored, err := store.GetToken(context.Background(), 1, platform.Twitter)
	require.NoError(t, err)
	assert.Equal(t, "renewed", stored.AccessToken)
}
