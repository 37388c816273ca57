package models

import "time"

// GroupingKind selects one of the ordered registries.
type GroupingKind string

const (
	KindCategory GroupingKind = "categories"
	KindTab      GroupingKind = "tabs"
)

// Valid reports whether k names a known registry.
func (k GroupingKind) Valid() bool {
	return k == KindCategory || k == KindTab
}

// Grouping is a named, ordered partition of the catalog.
type Grouping struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Order     int       `db:"display_order" json:"order"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Category classifies items by topic.
type Category = Grouping

// GroupingCreate is the request body for adding a category or tab
type GroupingCreate struct {
	Name string `json:"name"`
}

// GroupingUpdate renames and/or moves an entry
type GroupingUpdate struct {
	Name  *string `json:"name,omitempty"`
	Order *int    `json:"order,omitempty"`
}

// AllCategories is the filter value meaning "do not filter by category".
const AllCategories = "すべて"

// DefaultTabID identifies the tab created by the initial migration.
const DefaultTabID = "default"

// DefaultTabName is the display name of the initial tab.
const DefaultTabName = "作品"

// DefaultCategories returns the standard category set in display order.
func DefaultCategories() []string {
	return []string{
		"外観",
		"プライバシー",
		"生産性",
		"セキュリティ",
		"ショッピング",
		"開発者ツール",
		DefaultCategoryName,
	}
}
