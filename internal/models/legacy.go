package models

import (
	"strings"
	"time"
)

// LegacyItem is the v1 record written by the browser-local store
// (localStorage key chrome_store_extensions). Fields added later are
// optional and default to empty values on upgrade.
type LegacyItem struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	LongDescription string   `json:"longDescription"`
	Icon            string   `json:"icon"`
	Screenshots     []string `json:"screenshots"`
	Category        string   `json:"category"`
	Downloads       int64    `json:"downloads"`
	Featured        bool     `json:"featured"`
	DownloadURL     string   `json:"downloadUrl"`
	ZipFileName     string   `json:"zipFileName"`
	CreatedAt       int64    `json:"createdAt"`
	TabID           string   `json:"tabId"`
	DiscordName     string   `json:"discordName"`
	Email           string   `json:"email"`
}

// Upgrade converts the legacy record to the current schema. Rating and
// review count are left zero: they are derived from reviews.
func (l LegacyItem) Upgrade(defaultTabID string) Item {
	tabID := strings.TrimSpace(l.TabID)
	if tabID == "" {
		tabID = defaultTabID
	}
	category := strings.TrimSpace(l.Category)
	if category == "" {
		category = DefaultCategoryName
	}
	screens := StringList(l.Screenshots)
	if screens == nil {
		screens = StringList{}
	}
	downloads := l.Downloads
	if downloads < 0 {
		downloads = 0
	}
	return Item{
		ID:               strings.TrimSpace(l.ID),
		Name:             l.Name,
		Description:      l.Description,
		LongDescription:  l.LongDescription,
		Category:         category,
		TabID:            tabID,
		Icon:             l.Icon,
		Screenshots:      screens,
		DownloadURL:      l.DownloadURL,
		DownloadFileName: l.ZipFileName,
		Featured:         l.Featured,
		Downloads:        downloads,
		DiscordName:      l.DiscordName,
		Email:            l.Email,
		SchemaVersion:    CurrentSchemaVersion,
		CreatedAt:        millisToTime(l.CreatedAt),
	}
}

// LegacyReview is the v1 review record (localStorage key chrome_store_reviews).
type LegacyReview struct {
	ID          string `json:"id"`
	ExtensionID string `json:"extensionId"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	Author      string `json:"author"`
	CreatedAt   int64  `json:"createdAt"`
}

// Upgrade converts the legacy review to the current schema.
func (l LegacyReview) Upgrade() Review {
	return Review{
		ID:        strings.TrimSpace(l.ID),
		ItemID:    strings.TrimSpace(l.ExtensionID),
		Rating:    l.Rating,
		Comment:   l.Comment,
		Author:    l.Author,
		CreatedAt: millisToTime(l.CreatedAt),
	}
}

func millisToTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
