package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
	"github.com/maheshrc27/crosspost/internal/proxy"
	"github.com/maheshrc27/crosspost/internal/securestore"
	"github.com/maheshrc27/crosspost/internal/transfer"
)

// TokenService hands out usable access tokens. A nil or empty result always
// means "not connected"; storage and proxy failures never surface as errors.
type TokenService interface {
	IsExpired(token *models.OAuthToken) bool
	GetValidAccessToken(ctx context.Context, userID int64, p platform.Platform) (string, bool)
	Refresh(ctx context.Context, userID int64, p platform.Platform, current *models.OAuthToken) *models.OAuthToken
	IsConnected(ctx context.Context, userID int64, p platform.Platform) bool
	Renew(ctx context.Context, userID int64, p platform.Platform) bool
}

const refreshTimeout = 30 * time.Second

type tokenService struct {
	store    *securestore.Store
	proxy    proxy.TokenProxy
	registry *platform.Registry
	now      func() time.Time

	// one in-flight refresh per (user, platform)
	flights singleflight.Group
}

func NewTokenService(store *securestore.Store, tp proxy.TokenProxy, registry *platform.Registry) TokenService {
	return newTokenService(store, tp, registry, time.Now)
}

func newTokenService(store *securestore.Store, tp proxy.TokenProxy, registry *platform.Registry, now func() time.Time) *tokenService {
	return &tokenService{
		store:    store,
		proxy:    tp,
		registry: registry,
		now:      now,
	}
}

func (s *tokenService) IsExpired(token *models.OAuthToken) bool {
	return securestore.IsExpired(token, s.now())
}

func (s *tokenService) load(ctx context.Context, userID int64, p platform.Platform) *models.OAuthToken {
	token, err := s.store.GetToken(ctx, userID, p)
	if err != nil {
		slog.Warn("token read failed", "user_id", userID, "platform", p, "error", err)
		return nil
	}
	return token
}

func (s *tokenService) GetValidAccessToken(ctx context.Context, userID int64, p platform.Platform) (string, bool) {
	token := s.load(ctx, userID, p)
	if token == nil {
		return "", false
	}

	if s.IsExpired(token) {
		token = s.Refresh(ctx, userID, p, token)
		if token == nil {
			return "", false
		}
	}

	return token.AccessToken, token.AccessToken != ""
}

func (s *tokenService) IsConnected(ctx context.Context, userID int64, p platform.Platform) bool {
	_, ok := s.GetValidAccessToken(ctx, userID, p)
	return ok
}

// Renew refreshes the stored token regardless of its remaining lifetime.
func (s *tokenService) Renew(ctx context.Context, userID int64, p platform.Platform) bool {
	token := s.load(ctx, userID, p)
	if token == nil {
		return false
	}
	return s.Refresh(ctx, userID, p, token) != nil
}

func (s *tokenService) Refresh(ctx context.Context, userID int64, p platform.Platform, current *models.OAuthToken) *models.OAuthToken {
	if current == nil || current.RefreshToken == "" {
		return nil
	}

	key := fmt.Sprintf("%d:%s", userID, p)
	ch := s.flights.DoChan(key, func() (interface{}, error) {
		// Joined callers share this flight, so it must outlive the caller
		// that started it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		// A refresh that finished just before this flight may have replaced
		// the token already.
		if stored := s.load(ctx, userID, p); stored != nil &&
			stored.AccessToken != current.AccessToken && !s.IsExpired(stored) {
			return stored, nil
		}
		return s.refresh(ctx, userID, p, current), nil
	})

	select {
	case res := <-ch:
		token, _ := res.Val.(*models.OAuthToken)
		return token
	case <-ctx.Done():
		return nil
	}
}

func (s *tokenService) refresh(ctx context.Context, userID int64, p platform.Platform, current *models.OAuthToken) *models.OAuthToken {
	resp, err := s.proxy.Refresh(ctx, transfer.RefreshRequest{
		Platform:     string(p),
		RefreshToken: current.RefreshToken,
	})
	if err != nil {
		slog.Info(err.Error())
		return nil
	}

	token := &models.OAuthToken{
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		ExpiresAt:    s.expiresAt(p, resp.ExpiresIn),
		TokenType:    resp.TokenType,
		Scope:        resp.Scope,
		UserID:       current.UserID,
		Username:     current.Username,
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}
	if token.TokenType == "" {
		token.TokenType = "Bearer"
	}
	if token.Scope == "" {
		token.Scope = current.Scope
	}

	if err := s.store.StoreToken(ctx, userID, p, token); err != nil {
		slog.Warn("failed to persist refreshed token", "user_id", userID, "platform", p, "error", err)
		return nil
	}
	return token
}

// expiresAt falls back to the platform's default lifetime when the response
// carries no expires_in.
func (s *tokenService) expiresAt(p platform.Platform, expiresIn int64) *time.Time {
	var fallback time.Duration
	if cfg, err := s.registry.Get(p); err == nil {
		fallback = cfg.DefaultLifetime
	}
	return expiryFrom(s.now(), expiresIn, fallback)
}
