package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/maheshrc27/crosspost/internal/securestore"
	"github.com/maheshrc27/crosspost/internal/service"
)

const (
	refreshWindow    = 30 * time.Minute
	concurrencyLimit = 10
)

// ExpiringTokenLister is satisfied by *securestore.Store.
type ExpiringTokenLister interface {
	ExpiringTokens(ctx context.Context, after, before time.Time) ([]securestore.TokenRef, error)
}

// TokenRefreshJob renews tokens shortly before they expire so scheduled
// posts find a usable token.
type TokenRefreshJob struct {
	store  ExpiringTokenLister
	tokens service.TokenService
	now    func() time.Time
}

func NewTokenRefreshJob(store ExpiringTokenLister, tokens service.TokenService) *TokenRefreshJob {
	return &TokenRefreshJob{
		store:  store,
		tokens: tokens,
		now:    time.Now,
	}
}

func (c *TokenRefreshJob) RefreshTokens() {
	c.Run(context.Background())
}

// Run returns the number of tokens renewed.
func (c *TokenRefreshJob) Run(ctx context.Context) int {
	now := c.now()
	refs, err := c.store.ExpiringTokens(ctx, now, now.Add(refreshWindow))
	if err != nil {
		slog.Info(err.Error())
		return 0
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		renewed int
	)
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, ref := range refs {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(ref securestore.TokenRef) {
			defer wg.Done()
			defer func() { <-semaphore }()

			if !c.tokens.Renew(ctx, ref.UserID, ref.Platform) {
				slog.Info("Unable to refresh token", "user_id", ref.UserID, "platform", ref.Platform)
				return
			}
			mu.Lock()
			renewed++
			mu.Unlock()
		}(ref)
	}

	wg.Wait()
	return renewed
}
