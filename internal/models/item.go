package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// CurrentSchemaVersion is written on every item persisted by this service.
// Version 1 records come from the legacy browser-local store (see LegacyItem).
const CurrentSchemaVersion = 2

// DefaultCategoryName is assigned to items submitted without a category.
const DefaultCategoryName = "その他"

// Item represents a listed creation in the catalog
type Item struct {
	ID               string     `db:"id" json:"id"`
	Name             string     `db:"name" json:"name"`
	Description      string     `db:"description" json:"description"`
	LongDescription  string     `db:"long_description" json:"long_description"`
	Category         string     `db:"category" json:"category"`
	TabID            string     `db:"tab_id" json:"tab_id"`
	Icon             string     `db:"icon" json:"icon"`
	Screenshots      StringList `db:"screenshots" json:"screenshots"`
	DownloadURL      string     `db:"download_url" json:"download_url"`
	DownloadFileName string     `db:"download_file_name" json:"download_file_name,omitempty"`
	Featured         bool       `db:"featured" json:"featured"`
	Downloads        int64      `db:"downloads" json:"downloads"`
	Rating           float64    `db:"rating" json:"rating"`
	ReviewCount      int        `db:"review_count" json:"review_count"`
	UploaderName     string     `db:"uploader_name" json:"uploader_name,omitempty"`
	DiscordName      string     `db:"discord_name" json:"discord_name,omitempty"`
	Email            string     `db:"email" json:"email,omitempty"`
	SchemaVersion    int        `db:"schema_version" json:"-"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
}

// ItemList is a collection of items
type ItemList struct {
	Items      []Item `json:"items"`
	TotalCount int    `json:"total_count"`
}

// ItemCreate is the request body for submitting a new item.
// Media fields may carry inline payloads; they are uploaded before the
// item is persisted.
type ItemCreate struct {
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	LongDescription string     `json:"long_description"`
	Category        string     `json:"category"`
	TabID           string     `json:"tab_id"`
	Icon            MediaRef   `json:"icon"`
	Screenshots     []MediaRef `json:"screenshots"`
	DownloadURL     string     `json:"download_url"`
	Archive         MediaRef   `json:"archive"`
	Featured        bool       `json:"featured"`
	UploaderName    string     `json:"uploader_name"`
	DiscordName     string     `json:"discord_name"`
	Email           string     `json:"email"`
}

// RatingSummary is the derived rating state of one item.
type RatingSummary struct {
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

// StringList persists an ordered list of strings as a JSON text column.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("models: cannot scan %T into StringList", src)
	}
	if len(raw) == 0 {
		*l = StringList{}
		return nil
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("models: decode string list: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	*l = out
	return nil
}
