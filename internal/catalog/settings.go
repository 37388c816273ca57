package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/models"
	"github.com/meur/sharehub/internal/storage"
)

var bannerTarget = media.Single("home", "settings", "banner")

// GetHomeSettings returns the saved settings, or the defaults before the
// first save.
func (s *Service) GetHomeSettings(ctx context.Context) (models.HomeSettings, error) {
	hs, err := s.store.GetHomeSettings(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return models.DefaultHomeSettings(), nil
	}
	if err != nil {
		return models.HomeSettings{}, s.mapStoreError("get home settings", err)
	}
	return hs, nil
}

// UpdateHomeSettings uploads an inline banner, then replaces the settings.
func (s *Service) UpdateHomeSettings(ctx context.Context, session auth.Session, cmd models.HomeSettingsUpdate) (models.HomeSettings, error) {
	if err := requireAdmin(session, "update home settings"); err != nil {
		return models.HomeSettings{}, err
	}
	title := strings.TrimSpace(cmd.Title)
	if title == "" {
		return models.HomeSettings{}, invalid("title is required")
	}
	if err := s.media.Check(cmd.BannerImage, media.ImagePolicy); err != nil {
		return models.HomeSettings{}, invalid("banner_image: %v", err)
	}

	banner, err := s.media.Ingest(ctx, cmd.BannerImage, bannerTarget, media.ImagePolicy.WithOverwrite())
	if err != nil {
		return models.HomeSettings{}, s.mapMediaError("upload banner", err)
	}

	hs, err := s.store.SaveHomeSettings(ctx, models.HomeSettings{
		Title:       title,
		Subtitle:    strings.TrimSpace(cmd.Subtitle),
		BannerImage: banner,
		UpdatedAt:   s.clock(),
	})
	if err != nil {
		return models.HomeSettings{}, s.mapStoreError("save home settings", err)
	}
	return hs, nil
}
