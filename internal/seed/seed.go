// Package seed loads catalog fixtures from YAML and applies them through
// the catalog service.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/models"
)

//go:embed fixtures/default.yaml
var defaultFixture []byte

const day = 24 * time.Hour

// Fixture is the YAML document shape.
type Fixture struct {
	Home       *HomeFixture    `yaml:"home"`
	Categories []string        `yaml:"categories"`
	Tabs       []string        `yaml:"tabs"`
	Items      []ItemFixture   `yaml:"items"`
	Reviews    []ReviewFixture `yaml:"reviews"`
}

type HomeFixture struct {
	Title       string `yaml:"title"`
	Subtitle    string `yaml:"subtitle"`
	BannerImage string `yaml:"banner_image"`
}

type ItemFixture struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	LongDescription string   `yaml:"long_description"`
	Icon            string   `yaml:"icon"`
	Screenshots     []string `yaml:"screenshots"`
	Category        string   `yaml:"category"`
	Tab             string   `yaml:"tab"` // tab name; empty means the first tab
	Downloads       int64    `yaml:"downloads"`
	Featured        bool     `yaml:"featured"`
	DownloadURL     string   `yaml:"download_url"`
	CreatedDaysAgo  int      `yaml:"created_days_ago"`
}

type ReviewFixture struct {
	ID             string `yaml:"id"`
	ItemID         string `yaml:"item_id"`
	Rating         int    `yaml:"rating"`
	Comment        string `yaml:"comment"`
	Author         string `yaml:"author"`
	CreatedDaysAgo int    `yaml:"created_days_ago"`
}

// Result counts what Apply wrote.
type Result struct {
	Categories int
	Tabs       int
	Items      int
	Reviews    int
	Skipped    int
	Home       bool
}

// Load decodes a fixture document. Unknown fields are rejected.
func Load(r io.Reader) (Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f Fixture
	if err := dec.Decode(&f); err != nil {
		return Fixture{}, fmt.Errorf("seed: decode fixture: %w", err)
	}
	return f, nil
}

// Default returns the built-in demo catalog.
func Default() (Fixture, error) {
	return Load(bytes.NewReader(defaultFixture))
}

// Apply writes the fixture through svc. Records that already exist are
// skipped, so applying twice is harmless. Timestamps are relative to now.
func Apply(ctx context.Context, svc *catalog.Service, session auth.Session, f Fixture, now time.Time, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res Result
	var err error

	if res.Categories, err = svc.EnsureGroupings(ctx, models.KindCategory, f.Categories); err != nil {
		return res, err
	}
	if res.Tabs, err = svc.EnsureGroupings(ctx, models.KindTab, f.Tabs); err != nil {
		return res, err
	}

	tabs, err := svc.ListGroupings(ctx, models.KindTab)
	if err != nil {
		return res, err
	}
	tabIDs := make(map[string]string, len(tabs))
	for _, t := range tabs {
		tabIDs[t.Name] = t.ID
	}

	if f.Home != nil {
		if res.Home, err = applyHome(ctx, svc, session, f.Home); err != nil {
			return res, err
		}
	}

	for _, it := range f.Items {
		tabID := ""
		if it.Tab != "" {
			id, ok := tabIDs[it.Tab]
			if !ok {
				return res, fmt.Errorf("seed: item %s: unknown tab %q", it.ID, it.Tab)
			}
			tabID = id
		}
		_, err := svc.ImportItem(ctx, models.Item{
			ID:              it.ID,
			Name:            it.Name,
			Description:     it.Description,
			LongDescription: it.LongDescription,
			Category:        it.Category,
			TabID:           tabID,
			Icon:            it.Icon,
			Screenshots:     models.StringList(it.Screenshots),
			DownloadURL:     it.DownloadURL,
			Featured:        it.Featured,
			Downloads:       it.Downloads,
			CreatedAt:       now.Add(-time.Duration(it.CreatedDaysAgo) * day),
		})
		if errors.Is(err, catalog.ErrConflict) {
			logger.Debug("item exists, skipping", zap.String("item_id", it.ID))
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Items++
	}

	for _, rv := range f.Reviews {
		_, err := svc.ImportReview(ctx, models.Review{
			ID:        rv.ID,
			ItemID:    rv.ItemID,
			Rating:    rv.Rating,
			Comment:   rv.Comment,
			Author:    rv.Author,
			CreatedAt: now.Add(-time.Duration(rv.CreatedDaysAgo) * day),
		})
		if errors.Is(err, catalog.ErrConflict) {
			res.Skipped++
			continue
		}
		if err != nil {
			return res, err
		}
		res.Reviews++
	}

	logger.Info("fixture applied",
		zap.Int("categories", res.Categories),
		zap.Int("tabs", res.Tabs),
		zap.Int("items", res.Items),
		zap.Int("reviews", res.Reviews),
		zap.Int("skipped", res.Skipped),
		zap.Bool("home", res.Home))
	return res, nil
}

// applyHome writes the fixture's home settings unless an admin has already
// saved some.
func applyHome(ctx context.Context, svc *catalog.Service, session auth.Session, home *HomeFixture) (bool, error) {
	current, err := svc.GetHomeSettings(ctx)
	if err != nil {
		return false, err
	}
	if !current.UpdatedAt.IsZero() {
		return false, nil
	}
	banner, err := models.ParseMediaRef(home.BannerImage)
	if err != nil {
		return false, fmt.Errorf("seed: home banner: %w", err)
	}
	_, err = svc.UpdateHomeSettings(ctx, session, models.HomeSettingsUpdate{
		Title:       home.Title,
		Subtitle:    home.Subtitle,
		BannerImage: banner,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
