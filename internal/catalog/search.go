package catalog

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/meur/sharehub/internal/models"
)

// SortKey orders search results, always descending.
type SortKey string

const (
	SortDownloads SortKey = "downloads"
	SortRating    SortKey = "rating"
	SortNewest    SortKey = "newest"
)

// ParseSortKey validates a client-supplied sort key. Empty means downloads.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.TrimSpace(s)); k {
	case "":
		return SortDownloads, nil
	case SortDownloads, SortRating, SortNewest:
		return k, nil
	default:
		return "", invalid("unknown sort key %q", s)
	}
}

// Query selects and orders items.
type Query struct {
	Text     string
	Category string // empty or models.AllCategories disables the filter
	Sort     SortKey
	Featured *bool
}

// Search filters and stably sorts items. It never fails; no match yields
// an empty slice. The input slice is not modified.
func Search(items []models.Item, q Query) []models.Item {
	folder := cases.Fold()
	needle := folder.String(strings.TrimSpace(q.Text))
	category := strings.TrimSpace(q.Category)
	filterCategory := category != "" && category != models.AllCategories

	out := make([]models.Item, 0, len(items))
	for _, item := range items {
		if filterCategory && item.Category != category {
			continue
		}
		if q.Featured != nil && item.Featured != *q.Featured {
			continue
		}
		if needle != "" &&
			!strings.Contains(folder.String(item.Name), needle) &&
			!strings.Contains(folder.String(item.Description), needle) &&
			!strings.Contains(folder.String(item.LongDescription), needle) {
			continue
		}
		out = append(out, item)
	}

	sort.SliceStable(out, lessFor(q.Sort, out))
	return out
}

func lessFor(key SortKey, items []models.Item) func(i, j int) bool {
	switch key {
	case SortRating:
		return func(i, j int) bool { return items[i].Rating > items[j].Rating }
	case SortNewest:
		return func(i, j int) bool { return items[i].CreatedAt.After(items[j].CreatedAt) }
	default:
		return func(i, j int) bool { return items[i].Downloads > items[j].Downloads }
	}
}

// SearchItems runs Search over the persisted catalog.
func (s *Service) SearchItems(ctx context.Context, q Query) ([]models.Item, error) {
	if q.Sort == "" {
		q.Sort = SortDownloads
	}
	if _, err := ParseSortKey(string(q.Sort)); err != nil {
		return nil, err
	}
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, s.mapStoreError("list items", err)
	}
	return Search(items, q), nil
}
