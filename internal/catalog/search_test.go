package catalog

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/sharehub/internal/models"
)

func searchFixture() []models.Item {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Item{
		{ID: "dark", Name: "Dark Reader", Description: "Night mode for every site", Category: "外観", Downloads: 500, Rating: 4.7, CreatedAt: base},
		{ID: "ub", Name: "uBlock Origin", Description: "Efficient blocker", LongDescription: "Blocks ads and trackers", Category: "プライバシー", Downloads: 900, Rating: 4.9, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "todo", Name: "Todo Tab", Description: "Tasks in a new tab", Category: "生産性", Downloads: 120, Rating: 4.2, Featured: true, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "pw", Name: "Password Vault", Description: "Keeps secrets", Category: "セキュリティ", Downloads: 500, Rating: 4.2, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "theme", Name: "Theme Kit", Description: "Colour schemes", LongDescription: "Pastel PALETTES for the browser", Category: "外観", Downloads: 40, Rating: 3.1, Featured: true, CreatedAt: base.Add(4 * time.Hour)},
	}
}

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}

func TestSearchQueryMatchesAnyTextField(t *testing.T) {
	items := searchFixture()

	for _, category := range []string{models.AllCategories, ""} {
		got := Search(items, Query{Text: "dark", Category: category, Sort: SortDownloads})
		assert.Equal(t, []string{"dark"}, ids(got), "category %q", category)
	}

	assert.Equal(t, []string{"dark"}, ids(Search(items, Query{Text: "DARK"})))
	assert.Equal(t, []string{"ub"}, ids(Search(items, Query{Text: "trackers"})))
	assert.Equal(t, []string{"theme"}, ids(Search(items, Query{Text: "palettes"})))
	assert.Equal(t, []string{"todo"}, ids(Search(items, Query{Text: "  new tab "})))
}

func TestSearchNoMatchIsEmpty(t *testing.T) {
	got := Search(searchFixture(), Query{Text: "nothing like this"})
	require.NotNil(t, got)
	assert.Empty(t, got)

	got = Search(nil, Query{})
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchCategoryFilter(t *testing.T) {
	got := Search(searchFixture(), Query{Category: "外観", Sort: SortNewest})
	require.NotEmpty(t, got)
	for _, item := range got {
		assert.Equal(t, "外観", item.Category)
	}
	assert.Equal(t, []string{"theme", "dark"}, ids(got))

	assert.Empty(t, Search(searchFixture(), Query{Text: "dark", Category: "生産性"}))
}

func TestSearchSortIsDescendingAndStable(t *testing.T) {
	items := searchFixture()

	assert.Equal(t, []string{"ub", "dark", "pw", "todo", "theme"}, ids(Search(items, Query{Sort: SortDownloads})))
	assert.Equal(t, []string{"ub", "dark", "todo", "pw", "theme"}, ids(Search(items, Query{Sort: SortRating})))
	assert.Equal(t, []string{"theme", "pw", "todo", "ub", "dark"}, ids(Search(items, Query{Sort: SortNewest})))

	keys := map[SortKey]func(models.Item) float64{
		SortDownloads: func(i models.Item) float64 { return float64(i.Downloads) },
		SortRating:    func(i models.Item) float64 { return i.Rating },
		SortNewest:    func(i models.Item) float64 { return float64(i.CreatedAt.Unix()) },
	}
	position := map[string]int{}
	for i, item := range items {
		position[item.ID] = i
	}
	for sortKey, key := range keys {
		got := Search(items, Query{Sort: sortKey})
		for i := 1; i < len(got); i++ {
			a, b := got[i-1], got[i]
			assert.GreaterOrEqual(t, key(a), key(b), "sort %s", sortKey)
			if key(a) == key(b) {
				assert.Less(t, position[a.ID], position[b.ID], "sort %s keeps input order on ties", sortKey)
			}
		}
	}
}

func TestSearchIsIdempotentAndPure(t *testing.T) {
	items := searchFixture()
	before := append([]models.Item(nil), items...)
	q := Query{Text: "e", Category: models.AllCategories, Sort: SortRating}

	first := Search(items, q)
	second := Search(items, q)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("search not idempotent (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(before, items); diff != "" {
		t.Fatalf("search mutated its input (-before +after):\n%s", diff)
	}
}

func TestSearchFeatured(t *testing.T) {
	featured, regular := true, false
	assert.Equal(t, []string{"todo", "theme"}, ids(Search(searchFixture(), Query{Featured: &featured})))
	assert.Equal(t, []string{"ub", "dark", "pw"}, ids(Search(searchFixture(), Query{Featured: &regular})))
}

func TestParseSortKey(t *testing.T) {
	k, err := ParseSortKey("")
	require.NoError(t, err)
	assert.Equal(t, SortDownloads, k)

	k, err = ParseSortKey("newest")
	require.NoError(t, err)
	assert.Equal(t, SortNewest, k)

	_, err = ParseSortKey("popularity")
	assert.ErrorIs(t, err, ErrValidation)
}
