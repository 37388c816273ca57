package storage

import (
	"context"
	"fmt"

	"github.com/meur/sharehub/internal/models"
)

const homeSettingsRowID = 1

// --- Home settings ---

// GetHomeSettings returns the stored settings, or ErrNotFound before the first save
func (s *Store) GetHomeSettings(ctx context.Context) (models.HomeSettings, error) {
	var hs models.HomeSettings
	err := s.db.GetContext(ctx, &hs, s.db.Rebind(
		`SELECT title, subtitle, banner_image, updated_at FROM home_settings WHERE id = ?`), homeSettingsRowID)
	if err != nil {
		return models.HomeSettings{}, notFoundIfNoRows(err)
	}
	return hs, nil
}

// SaveHomeSettings upserts the singleton settings row
func (s *Store) SaveHomeSettings(ctx context.Context, hs models.HomeSettings) (models.HomeSettings, error) {
	if hs.UpdatedAt.IsZero() {
		hs.UpdatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO home_settings (id, title, subtitle, banner_image, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			subtitle = excluded.subtitle,
			banner_image = excluded.banner_image,
			updated_at = excluded.updated_at
	`), homeSettingsRowID, hs.Title, hs.Subtitle, hs.BannerImage, hs.UpdatedAt)
	if err != nil {
		return models.HomeSettings{}, fmt.Errorf("save home settings: %w", err)
	}
	return hs, nil
}
