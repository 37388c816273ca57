package storage

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/meur/sharehub/internal/models"
)

const itemColumns = `id, name, description, long_description, category, tab_id, icon, screenshots,
	download_url, download_file_name, featured, downloads, rating, review_count,
	uploader_name, discord_name, email, schema_version, created_at`

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

// --- Items ---

// ListItems returns every item, newest first
func (s *Store) ListItems(ctx context.Context) ([]models.Item, error) {
	items := []models.Item{}
	err := s.db.SelectContext(ctx, &items,
		`SELECT `+itemColumns+` FROM items ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItem returns an item by ID
func (s *Store) GetItem(ctx context.Context, id string) (models.Item, error) {
	return getItem(ctx, s.db, id)
}

func getItem(ctx context.Context, q queryer, id string) (models.Item, error) {
	var item models.Item
	err := sqlx.GetContext(ctx, q, &item,
		q.Rebind(`SELECT `+itemColumns+` FROM items WHERE id = ?`), id)
	if err != nil {
		return models.Item{}, notFoundIfNoRows(err)
	}
	return item, nil
}

// InsertItem persists a fully populated item
func (s *Store) InsertItem(ctx context.Context, item models.Item) (models.Item, error) {
	if item.Screenshots == nil {
		item.Screenshots = models.StringList{}
	}
	if item.SchemaVersion == 0 {
		item.SchemaVersion = models.CurrentSchemaVersion
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.now()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO items (`+itemColumns+`)
		VALUES (:id, :name, :description, :long_description, :category, :tab_id, :icon, :screenshots,
			:download_url, :download_file_name, :featured, :downloads, :rating, :review_count,
			:uploader_name, :discord_name, :email, :schema_version, :created_at)
	`, item)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Item{}, ErrConflict
		}
		return models.Item{}, fmt.Errorf("insert item: %w", err)
	}
	return item, nil
}

// DeleteItem removes an item together with its reviews
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM reviews WHERE item_id = ?`), id); err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM items WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("delete item: %w", err)
		}
		return requireAffected(res)
	})
}

// IncrementDownloads adds one to the download counter and returns the updated item
func (s *Store) IncrementDownloads(ctx context.Context, id string) (models.Item, error) {
	var updated models.Item
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE items SET downloads = downloads + 1 WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("increment downloads: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		updated, err = getItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Item{}, err
	}
	return updated, nil
}

// ApplyRating stores a freshly aggregated rating summary on the item
func (s *Store) ApplyRating(ctx context.Context, id string, summary models.RatingSummary) (models.Item, error) {
	var updated models.Item
	err := s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx,
			tx.Rebind(`UPDATE items SET rating = ?, review_count = ? WHERE id = ?`),
			summary.Rating, summary.ReviewCount, id)
		if err != nil {
			return fmt.Errorf("apply rating: %w", err)
		}
		if err := requireAffected(res); err != nil {
			return err
		}
		updated, err = getItem(ctx, tx, id)
		return err
	})
	if err != nil {
		return models.Item{}, err
	}
	return updated, nil
}
