package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/meur/sharehub/internal/models"
)

const reviewColumns = `id, item_id, rating, comment, author, created_at`

// --- Reviews ---

// ListReviews returns all reviews, newest first
func (s *Store) ListReviews(ctx context.Context) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.SelectContext(ctx, &reviews,
		`SELECT `+reviewColumns+` FROM reviews ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	return reviews, nil
}

// ListReviewsByItem returns the reviews of one item, newest first
func (s *Store) ListReviewsByItem(ctx context.Context, itemID string) ([]models.Review, error) {
	reviews := []models.Review{}
	err := s.db.SelectContext(ctx, &reviews, s.db.Rebind(
		`SELECT `+reviewColumns+` FROM reviews WHERE item_id = ? ORDER BY created_at DESC, id DESC`), itemID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by item: %w", err)
	}
	return reviews, nil
}

// GetReview returns a review by ID
func (s *Store) GetReview(ctx context.Context, id string) (models.Review, error) {
	var review models.Review
	err := s.db.GetContext(ctx, &review, s.db.Rebind(
		`SELECT `+reviewColumns+` FROM reviews WHERE id = ?`), id)
	if err != nil {
		return models.Review{}, notFoundIfNoRows(err)
	}
	return review, nil
}

// InsertReview persists a review; the referenced item must exist
func (s *Store) InsertReview(ctx context.Context, review models.Review) (models.Review, error) {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = s.now()
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO reviews (`+reviewColumns+`)
		VALUES (:id, :item_id, :rating, :comment, :author, :created_at)
	`, review)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return models.Review{}, ErrConflict
		case isForeignKeyViolation(err):
			return models.Review{}, ErrNotFound
		}
		return models.Review{}, fmt.Errorf("insert review: %w", err)
	}
	return review, nil
}

// DeleteReview removes a review that belongs to itemID
func (s *Store) DeleteReview(ctx context.Context, itemID, reviewID string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(
		`DELETE FROM reviews WHERE id = ? AND item_id = ?`), reviewID, itemID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
