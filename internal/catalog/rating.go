package catalog

import (
	"context"

	"github.com/meur/sharehub/internal/models"
)

// Aggregate derives an item's rating from its reviews. The mean is rounded
// to one decimal, halves rounding up, using integer arithmetic so that
// boundaries such as 4.25 are exact.
func Aggregate(reviews []models.Review) models.RatingSummary {
	n := len(reviews)
	if n == 0 {
		return models.RatingSummary{}
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	// round(10*sum/n) == floor((20*sum + n) / 2n)
	tenths := (20*sum + n) / (2 * n)
	return models.RatingSummary{
		Rating:      float64(tenths) / 10,
		ReviewCount: n,
	}
}

// StaleRating pairs an item with the summary its reviews currently produce.
type StaleRating struct {
	Item    models.Item
	Summary models.RatingSummary
}

// StaleRatings reports items whose stored rating or review count disagrees
// with their reviews.
func (s *Service) StaleRatings(ctx context.Context) ([]StaleRating, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, s.mapStoreError("list items", err)
	}
	reviews, err := s.store.ListReviews(ctx)
	if err != nil {
		return nil, s.mapStoreError("list reviews", err)
	}
	byItem := make(map[string][]models.Review, len(items))
	for _, r := range reviews {
		byItem[r.ItemID] = append(byItem[r.ItemID], r)
	}

	stale := []StaleRating{}
	for _, item := range items {
		summary := Aggregate(byItem[item.ID])
		if summary.Rating != item.Rating || summary.ReviewCount != item.ReviewCount {
			stale = append(stale, StaleRating{Item: item, Summary: summary})
		}
	}
	return stale, nil
}
