package catalog

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/meur/sharehub/internal/models"
)

func reviewsWith(ratings ...int) []models.Review {
	out := make([]models.Review, len(ratings))
	for i, r := range ratings {
		out[i] = models.Review{Rating: r}
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		name    string
		ratings []int
		want    models.RatingSummary
	}{
		{"empty", nil, models.RatingSummary{}},
		{"five five four", []int{5, 5, 4}, models.RatingSummary{Rating: 4.7, ReviewCount: 3}},
		{"five five", []int{5, 5}, models.RatingSummary{Rating: 5.0, ReviewCount: 2}},
		{"single", []int{3}, models.RatingSummary{Rating: 3.0, ReviewCount: 1}},
		{"half rounds up", []int{4, 4, 4, 5}, models.RatingSummary{Rating: 4.3, ReviewCount: 4}},
		{"low half rounds up", []int{1, 1, 1, 2}, models.RatingSummary{Rating: 1.3, ReviewCount: 4}},
		{"thirds", []int{1, 1, 2}, models.RatingSummary{Rating: 1.3, ReviewCount: 3}},
		{"two thirds", []int{1, 2, 2}, models.RatingSummary{Rating: 1.7, ReviewCount: 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Aggregate(reviewsWith(tt.ratings...)))
		})
	}
}

func TestAggregateMatchesRoundedMean(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		n := 1 + rng.Intn(40)
		ratings := make([]int, n)
		sum := 0
		for j := range ratings {
			ratings[j] = 1 + rng.Intn(5)
			sum += ratings[j]
		}
		want := math.Floor(float64(10*sum)/float64(n)+0.5) / 10

		got := Aggregate(reviewsWith(ratings...))
		assert.Equal(t, want, got.Rating, "ratings %v", ratings)
		assert.Equal(t, n, got.ReviewCount)
		assert.GreaterOrEqual(t, got.Rating, 1.0)
		assert.LessOrEqual(t, got.Rating, 5.0)
	}
}
