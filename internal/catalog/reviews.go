package catalog

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/models"
)

const (
	minReviewRating = 1
	maxReviewRating = 5
)

// ListReviews returns every review, newest first.
func (s *Service) ListReviews(ctx context.Context) ([]models.Review, error) {
	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, s.mapStoreError("list reviews", err)
	}
	return reviews, nil
}

// ListItemReviews returns the reviews of one item, newest first.
func (s *Service) ListItemReviews(ctx context.Context, itemID string) ([]models.Review, error) {
	if _, err := s.store.GetItem(ctx, itemID); err != nil {
		return nil, s.mapStoreError("get item", err)
	}
	reviews, err := s.store.ListReviewsByItem(ctx, itemID)
	if err != nil {
		return nil, s.mapStoreError("list item reviews", err)
	}
	return reviews, nil
}

// CreateReview stores a review and re-aggregates the item's rating before
// returning both.
func (s *Service) CreateReview(ctx context.Context, itemID string, cmd models.ReviewCreate) (models.ReviewMutation, error) {
	review := models.Review{
		ID:      s.newReviewID(),
		ItemID:  strings.TrimSpace(itemID),
		Rating:  cmd.Rating,
		Comment: s.sanitize(cmd.Comment),
		Author:  s.sanitize(cmd.Author),
	}
	if err := validateReview(review); err != nil {
		return models.ReviewMutation{}, err
	}
	review.CreatedAt = s.clock()

	return s.insertReview(ctx, review)
}

// ImportReview stores a review from a seed or legacy import, keeping its
// id and timestamp.
func (s *Service) ImportReview(ctx context.Context, review models.Review) (models.ReviewMutation, error) {
	review.ItemID = strings.TrimSpace(review.ItemID)
	review.Comment = s.sanitize(review.Comment)
	review.Author = s.sanitize(review.Author)
	if strings.TrimSpace(review.ID) == "" {
		review.ID = s.newReviewID()
	}
	if err := validateReview(review); err != nil {
		return models.ReviewMutation{}, err
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = s.clock()
	}
	return s.insertReview(ctx, review)
}

func (s *Service) insertReview(ctx context.Context, review models.Review) (models.ReviewMutation, error) {
	unlock := s.itemLocks.Lock(review.ItemID)
	defer unlock()

	saved, err := s.store.InsertReview(ctx, review)
	if err != nil {
		return models.ReviewMutation{}, s.mapStoreError("insert review", err)
	}
	item, err := s.reaggregateLocked(ctx, review.ItemID)
	if err != nil {
		return models.ReviewMutation{}, err
	}

	s.logger.Info("review created",
		zap.String("review_id", saved.ID),
		zap.String("item_id", saved.ItemID),
		zap.Float64("rating", item.Rating),
		zap.Int("review_count", item.ReviewCount))
	return models.ReviewMutation{Review: saved, Item: item}, nil
}

// DeleteReview removes a review of itemID and re-aggregates the item.
func (s *Service) DeleteReview(ctx context.Context, session auth.Session, itemID, reviewID string) (models.ReviewMutation, error) {
	if err := requireAdmin(session, "delete review"); err != nil {
		return models.ReviewMutation{}, err
	}
	unlock := s.itemLocks.Lock(itemID)
	defer unlock()

	review, err := s.store.GetReview(ctx, reviewID)
	if err != nil {
		return models.ReviewMutation{}, s.mapStoreError("get review", err)
	}
	if err := s.store.DeleteReview(ctx, itemID, reviewID); err != nil {
		return models.ReviewMutation{}, s.mapStoreError("delete review", err)
	}
	item, err := s.reaggregateLocked(ctx, itemID)
	if err != nil {
		return models.ReviewMutation{}, err
	}

	s.logger.Info("review deleted",
		zap.String("review_id", reviewID),
		zap.String("item_id", itemID),
		zap.String("session_id", session.ID))
	return models.ReviewMutation{Review: review, Item: item}, nil
}

// Reaggregate recomputes the rating of one item from its stored reviews.
func (s *Service) Reaggregate(ctx context.Context, itemID string) (models.Item, error) {
	unlock := s.itemLocks.Lock(itemID)
	defer unlock()
	return s.reaggregateLocked(ctx, itemID)
}

func (s *Service) reaggregateLocked(ctx context.Context, itemID string) (models.Item, error) {
	reviews, err := s.store.ListReviewsByItem(ctx, itemID)
	if err != nil {
		return models.Item{}, s.mapStoreError("list item reviews", err)
	}
	item, err := s.store.ApplyRating(ctx, itemID, Aggregate(reviews))
	if err != nil {
		return models.Item{}, s.mapStoreError("apply rating", err)
	}
	return item, nil
}

func validateReview(r models.Review) error {
	switch {
	case r.ItemID == "":
		return invalid("item id is required")
	case r.Rating < minReviewRating || r.Rating > maxReviewRating:
		return invalid("rating must be between %d and %d", minReviewRating, maxReviewRating)
	case strings.TrimSpace(r.Author) == "":
		return invalid("author is required")
	case strings.TrimSpace(r.Comment) == "":
		return invalid("comment is required")
	}
	return nil
}
