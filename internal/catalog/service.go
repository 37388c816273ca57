// Package catalog holds the ShareHub business operations: items, reviews,
// rating aggregation, search, registries and home settings.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/models"
	"github.com/meur/sharehub/internal/render"
)

const reviewIDPrefix = "rev_"

// Store is the persistence collaborator. *storage.Store implements it.
type Store interface {
	ListItems(ctx context.Context) ([]models.Item, error)
	GetItem(ctx context.Context, id string) (models.Item, error)
	InsertItem(ctx context.Context, item models.Item) (models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	IncrementDownloads(ctx context.Context, id string) (models.Item, error)
	ApplyRating(ctx context.Context, id string, summary models.RatingSummary) (models.Item, error)

	ListReviews(ctx context.Context) ([]models.Review, error)
	ListReviewsByItem(ctx context.Context, itemID string) ([]models.Review, error)
	GetReview(ctx context.Context, id string) (models.Review, error)
	InsertReview(ctx context.Context, review models.Review) (models.Review, error)
	DeleteReview(ctx context.Context, itemID, reviewID string) error

	ListGroupings(ctx context.Context, kind models.GroupingKind) ([]models.Grouping, error)
	GetGrouping(ctx context.Context, kind models.GroupingKind, id string) (models.Grouping, error)
	InsertGrouping(ctx context.Context, kind models.GroupingKind, g models.Grouping) (models.Grouping, error)
	UpdateGrouping(ctx context.Context, kind models.GroupingKind, id string, name *string, order *int) (models.Grouping, error)
	DeleteGrouping(ctx context.Context, kind models.GroupingKind, id string, minRemaining int) ([]models.Grouping, error)

	GetHomeSettings(ctx context.Context) (models.HomeSettings, error)
	SaveHomeSettings(ctx context.Context, hs models.HomeSettings) (models.HomeSettings, error)
}

// Deps bundles collaborators required to construct a Service.
type Deps struct {
	Store             Store
	Media             *media.Ingestor
	Logger            *zap.Logger
	Clock             func() time.Time
	IDGenerator       func() string
	ReviewIDGenerator func() string
	Sanitizer         func(string) string
}

// Service implements the catalog operations.
type Service struct {
	store       Store
	media       *media.Ingestor
	logger      *zap.Logger
	clock       func() time.Time
	newID       func() string
	newReviewID func() string
	sanitize    func(string) string

	itemLocks *keyedMutex
}

// New wires dependencies into a Service.
func New(deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	if deps.Media == nil {
		return nil, errors.New("catalog: media ingestor is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newID := deps.IDGenerator
	if newID == nil {
		newID = uuid.NewString
	}
	newReviewID := deps.ReviewIDGenerator
	if newReviewID == nil {
		newReviewID = func() string {
			return reviewIDPrefix + ulid.Make().String()
		}
	}
	sanitize := deps.Sanitizer
	if sanitize == nil {
		sanitize = render.PlainText
	}

	return &Service{
		store:  deps.Store,
		media:  deps.Media,
		logger: logger.Named("catalog"),
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:       newID,
		newReviewID: newReviewID,
		sanitize:    sanitize,
		itemLocks:   newKeyedMutex(),
	}, nil
}

func requireAdmin(session auth.Session, op string) error {
	if !session.IsAdmin() {
		return fmt.Errorf("%w: %s", ErrUnauthorized, op)
	}
	return nil
}
