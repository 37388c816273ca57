package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/models"
	"github.com/meur/sharehub/internal/storage"
)

// MaxScreenshots bounds the screenshots attached to one item.
const MaxScreenshots = 5

const itemMediaKind = "items"

// ListItems returns every item, newest first.
func (s *Service) ListItems(ctx context.Context) ([]models.Item, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, s.mapStoreError("list items", err)
	}
	return items, nil
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, id string) (models.Item, error) {
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return models.Item{}, s.mapStoreError("get item", err)
	}
	return item, nil
}

// CreateItem validates the submission, uploads inline media, and persists
// the item with zeroed counters.
func (s *Service) CreateItem(ctx context.Context, cmd models.ItemCreate) (models.Item, error) {
	cmd = normalizeItemCreate(cmd)
	if err := s.validateItemCreate(cmd); err != nil {
		return models.Item{}, err
	}

	tabID, err := s.resolveTab(ctx, cmd.TabID)
	if err != nil {
		return models.Item{}, err
	}

	id := s.newID()
	icon, err := s.media.Ingest(ctx, cmd.Icon, media.Single(itemMediaKind, id, "icon"), media.ImagePolicy)
	if err != nil {
		return models.Item{}, s.mapMediaError("upload icon", err)
	}
	screenshots, err := s.media.IngestAll(ctx, cmd.Screenshots, itemMediaKind, id, "screenshot", media.ImagePolicy)
	if err != nil {
		return models.Item{}, s.mapMediaError("upload screenshots", err)
	}

	downloadURL, fileName := cmd.DownloadURL, ""
	if !cmd.Archive.IsZero() {
		downloadURL, err = s.media.Ingest(ctx, cmd.Archive, media.Single(itemMediaKind, id, "archive"), media.ArchivePolicy)
		if err != nil {
			return models.Item{}, s.mapMediaError("upload archive", err)
		}
		if cmd.Archive.IsInline() {
			fileName = cmd.Archive.Inline.FileName
		}
	}

	item, err := s.store.InsertItem(ctx, models.Item{
		ID:               id,
		Name:             cmd.Name,
		Description:      cmd.Description,
		LongDescription:  cmd.LongDescription,
		Category:         cmd.Category,
		TabID:            tabID,
		Icon:             icon,
		Screenshots:      models.StringList(screenshots),
		DownloadURL:      downloadURL,
		DownloadFileName: fileName,
		Featured:         cmd.Featured,
		UploaderName:     cmd.UploaderName,
		DiscordName:      cmd.DiscordName,
		Email:            cmd.Email,
		SchemaVersion:    models.CurrentSchemaVersion,
		CreatedAt:        s.clock(),
	})
	if err != nil {
		return models.Item{}, s.mapStoreError("insert item", err)
	}

	s.logger.Info("item created", zap.String("item_id", item.ID), zap.String("category", item.Category))
	return item, nil
}

// ImportItem persists an item produced by a seed or legacy import. The id,
// timestamp and download count are kept; the rating is reset because it is
// derived from reviews. Embedded data URLs in the icon, screenshots or
// download URL are uploaded and replaced by stored URLs.
func (s *Service) ImportItem(ctx context.Context, item models.Item) (models.Item, error) {
	item.ID = strings.TrimSpace(item.ID)
	if item.ID == "" {
		item.ID = s.newID()
	}
	if strings.TrimSpace(item.Name) == "" {
		return models.Item{}, invalid("item %s: name is required", item.ID)
	}
	if strings.TrimSpace(item.Category) == "" {
		item.Category = models.DefaultCategoryName
	}

	icon, screenshots, archive, err := parseImportedMedia(item)
	if err != nil {
		return models.Item{}, err
	}
	if err := s.checkItemMedia(icon, screenshots, archive); err != nil {
		return models.Item{}, err
	}
	if archive.IsZero() && item.DownloadURL != "" {
		if err := validateHTTPURL(item.DownloadURL); err != nil {
			return models.Item{}, invalid("download_url: %v", err)
		}
	}

	tabID, err := s.resolveTab(ctx, item.TabID)
	if err != nil {
		return models.Item{}, err
	}
	item.TabID = tabID
	if item.Downloads < 0 {
		item.Downloads = 0
	}
	item.Rating, item.ReviewCount = 0, 0
	item.SchemaVersion = models.CurrentSchemaVersion
	if item.CreatedAt.IsZero() {
		item.CreatedAt = s.clock()
	}

	unlock := s.itemLocks.Lock(item.ID)
	defer unlock()

	// Existing items are reported before anything is uploaded to their paths.
	_, err = s.store.GetItem(ctx, item.ID)
	switch {
	case err == nil:
		return models.Item{}, fmt.Errorf("%w: item %s already exists", ErrConflict, item.ID)
	case !errors.Is(err, storage.ErrNotFound):
		return models.Item{}, s.mapStoreError("get item", err)
	}

	if item.Icon, err = s.media.Ingest(ctx, icon, media.Single(itemMediaKind, item.ID, "icon"), media.ImagePolicy); err != nil {
		return models.Item{}, s.mapMediaError("upload icon", err)
	}
	urls, err := s.media.IngestAll(ctx, screenshots, itemMediaKind, item.ID, "screenshot", media.ImagePolicy)
	if err != nil {
		return models.Item{}, s.mapMediaError("upload screenshots", err)
	}
	item.Screenshots = models.StringList(urls)
	if !archive.IsZero() {
		if item.DownloadURL, err = s.media.Ingest(ctx, archive, media.Single(itemMediaKind, item.ID, "archive"), media.ArchivePolicy); err != nil {
			return models.Item{}, s.mapMediaError("upload archive", err)
		}
	}

	saved, err := s.store.InsertItem(ctx, item)
	if err != nil {
		return models.Item{}, s.mapStoreError("import item", err)
	}
	return saved, nil
}

// parseImportedMedia decodes the media fields of an imported item. The
// download URL only counts as an archive when it carries a data URL.
func parseImportedMedia(item models.Item) (icon models.MediaRef, screenshots []models.MediaRef, archive models.MediaRef, err error) {
	if icon, err = models.ParseMediaRef(item.Icon); err != nil {
		return icon, nil, archive, invalid("icon: %v", err)
	}
	for i, raw := range item.Screenshots {
		ref, err := models.ParseMediaRef(raw)
		if err != nil {
			return icon, nil, archive, invalid("screenshot %d: %v", i, err)
		}
		if !ref.IsZero() {
			screenshots = append(screenshots, ref)
		}
	}
	if len(screenshots) > MaxScreenshots {
		return icon, nil, archive, invalid("at most %d screenshots are allowed", MaxScreenshots)
	}
	if strings.HasPrefix(strings.TrimSpace(item.DownloadURL), "data:") {
		if archive, err = models.ParseMediaRef(item.DownloadURL); err != nil {
			return icon, nil, archive, invalid("download_url: %v", err)
		}
		archive.Inline.FileName = item.DownloadFileName
	}
	return icon, screenshots, archive, nil
}

// DeleteItem removes an item and its reviews.
func (s *Service) DeleteItem(ctx context.Context, session auth.Session, id string) error {
	if err := requireAdmin(session, "delete item"); err != nil {
		return err
	}
	unlock := s.itemLocks.Lock(id)
	defer unlock()

	if err := s.store.DeleteItem(ctx, id); err != nil {
		return s.mapStoreError("delete item", err)
	}
	s.logger.Info("item deleted", zap.String("item_id", id), zap.String("session_id", session.ID))
	return nil
}

// IncrementDownloads adds one download and returns the updated item.
func (s *Service) IncrementDownloads(ctx context.Context, id string) (models.Item, error) {
	item, err := s.store.IncrementDownloads(ctx, id)
	if err != nil {
		return models.Item{}, s.mapStoreError("increment downloads", err)
	}
	return item, nil
}

// resolveTab returns tabID when it exists, or the first tab when blank.
func (s *Service) resolveTab(ctx context.Context, tabID string) (string, error) {
	tabID = strings.TrimSpace(tabID)
	if tabID != "" {
		_, err := s.store.GetGrouping(ctx, models.KindTab, tabID)
		if errors.Is(err, storage.ErrNotFound) {
			return "", invalid("unknown tab %q", tabID)
		}
		if err != nil {
			return "", s.mapStoreError("get tab", err)
		}
		return tabID, nil
	}

	tabs, err := s.store.ListGroupings(ctx, models.KindTab)
	if err != nil {
		return "", s.mapStoreError("list tabs", err)
	}
	if len(tabs) == 0 {
		return models.DefaultTabID, nil
	}
	return tabs[0].ID, nil
}

func normalizeItemCreate(cmd models.ItemCreate) models.ItemCreate {
	cmd.Name = strings.TrimSpace(cmd.Name)
	cmd.Description = strings.TrimSpace(cmd.Description)
	cmd.LongDescription = strings.TrimSpace(cmd.LongDescription)
	cmd.Category = strings.TrimSpace(cmd.Category)
	if cmd.Category == "" || cmd.Category == models.AllCategories {
		cmd.Category = models.DefaultCategoryName
	}
	cmd.DownloadURL = strings.TrimSpace(cmd.DownloadURL)
	cmd.UploaderName = strings.TrimSpace(cmd.UploaderName)
	cmd.DiscordName = strings.TrimSpace(cmd.DiscordName)
	cmd.Email = strings.TrimSpace(cmd.Email)

	screens := cmd.Screenshots[:0:0]
	for _, ref := range cmd.Screenshots {
		if !ref.IsZero() {
			screens = append(screens, ref)
		}
	}
	cmd.Screenshots = screens
	return cmd
}

func (s *Service) validateItemCreate(cmd models.ItemCreate) error {
	switch {
	case cmd.Name == "":
		return invalid("name is required")
	case cmd.Description == "":
		return invalid("description is required")
	case cmd.LongDescription == "":
		return invalid("long_description is required")
	case cmd.Icon.IsZero():
		return invalid("icon is required")
	case cmd.DownloadURL == "" && cmd.Archive.IsZero():
		return invalid("download_url or archive is required")
	case len(cmd.Screenshots) > MaxScreenshots:
		return invalid("at most %d screenshots are allowed", MaxScreenshots)
	}

	if cmd.DownloadURL != "" && cmd.Archive.IsZero() {
		if err := validateHTTPURL(cmd.DownloadURL); err != nil {
			return invalid("download_url: %v", err)
		}
	}
	if cmd.Email != "" {
		if _, err := mail.ParseAddress(cmd.Email); err != nil {
			return invalid("email is malformed")
		}
	}

	return s.checkItemMedia(cmd.Icon, cmd.Screenshots, cmd.Archive)
}

// checkItemMedia validates every media reference of an item before any
// of them is uploaded.
func (s *Service) checkItemMedia(icon models.MediaRef, screenshots []models.MediaRef, archive models.MediaRef) error {
	if err := s.media.Check(icon, media.ImagePolicy); err != nil {
		return invalid("icon: %v", err)
	}
	for i, ref := range screenshots {
		if err := s.media.Check(ref, media.ImagePolicy); err != nil {
			return invalid("screenshot %d: %v", i, err)
		}
	}
	if err := s.media.Check(archive, media.ArchivePolicy); err != nil {
		return invalid("archive: %v", err)
	}
	return nil
}

func validateHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http(s) URL")
	}
	return nil
}
