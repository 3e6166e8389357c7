package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maheshrc27/crosspost/internal/models"
	"github.com/maheshrc27/crosspost/internal/platform"
)

// SettingsStore is satisfied by *securestore.Store.
type SettingsStore interface {
	GetSettings(ctx context.Context, userID int64) (*models.Settings, error)
	StoreSettings(ctx context.Context, userID int64, settings *models.Settings) error
}

type SettingsService interface {
	GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error)
	UpdateSettings(ctx context.Context, userID int64, settings *models.Settings) error
	// ApplyDefaults fills the platforms and targets a request left empty.
	ApplyDefaults(ctx context.Context, userID int64, platforms []string, targets *models.PublishTargets) ([]string, *models.PublishTargets)
}

type settingsService struct {
	store SettingsStore
	now   func() time.Time
}

func NewSettingsService(store SettingsStore) SettingsService {
	return &settingsService{
		store: store,
		now:   time.Now,
	}
}

// GetSettingsInfo returns empty settings for a user who never saved any.
func (s *settingsService) GetSettingsInfo(ctx context.Context, userID int64) (*models.Settings, error) {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return &models.Settings{DefaultPlatforms: []string{}}, nil
	}
	return settings, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, userID int64, settings *models.Settings) error {
	if userID == 0 {
		err := errors.New("UserID is not valid")
		slog.Info(err.Error())
		return err
	}

	normalized := make([]string, 0, len(settings.DefaultPlatforms))
	for _, name := range settings.DefaultPlatforms {
		p, err := platform.Parse(name)
		if err != nil {
			slog.Info(err.Error())
			return err
		}
		normalized = append(normalized, string(p))
	}

	updated := *settings
	updated.DefaultPlatforms = normalized
	updated.UpdatedAt = s.now()
	return s.store.StoreSettings(ctx, userID, &updated)
}

func (s *settingsService) ApplyDefaults(ctx context.Context, userID int64, platforms []string, targets *models.PublishTargets) ([]string, *models.PublishTargets) {
	var t models.PublishTargets
	if targets != nil {
		t = *targets
	}

	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil || settings == nil {
		return platforms, &t
	}

	if len(platforms) == 0 {
		platforms = append([]string(nil), settings.DefaultPlatforms...)
	}
	if t.FacebookPageID == "" {
		t.FacebookPageID = settings.Targets.FacebookPageID
	}
	if t.LinkedInPersonURN == "" {
		t.LinkedInPersonURN = settings.Targets.LinkedInPersonURN
	}
	if t.PinterestBoardID == "" {
		t.PinterestBoardID = settings.Targets.PinterestBoardID
	}
	return platforms, &t
}
