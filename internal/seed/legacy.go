package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/models"
)

// legacyNamespace derives stable IDs for v1 records that were saved
// without one, so re-running an import does not duplicate them.
var legacyNamespace = uuid.MustParse("6f1c3a52-8d0e-4c6b-9a57-2b7f0e4d9c11")

// LegacyDump is an export of the browser-local store. Each key holds either
// a JSON array or, as localStorage stores it, a string containing one.
type LegacyDump struct {
	Items   []models.LegacyItem
	Reviews []models.LegacyReview
}

type rawDump struct {
	Items   json.RawMessage `json:"chrome_store_extensions"`
	Reviews json.RawMessage `json:"chrome_store_reviews"`
}

// LoadLegacy decodes a localStorage dump.
func LoadLegacy(r io.Reader) (LegacyDump, error) {
	var raw rawDump
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return LegacyDump{}, fmt.Errorf("seed: decode legacy dump: %w", err)
	}
	var dump LegacyDump
	if err := decodeStored(raw.Items, &dump.Items); err != nil {
		return LegacyDump{}, fmt.Errorf("seed: chrome_store_extensions: %w", err)
	}
	if err := decodeStored(raw.Reviews, &dump.Reviews); err != nil {
		return LegacyDump{}, fmt.Errorf("seed: chrome_store_reviews: %w", err)
	}
	return dump, nil
}

func decodeStored(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return err
		}
		raw = []byte(inner)
	}
	return json.Unmarshal(raw, dst)
}

// ImportResult counts what ImportLegacy wrote.
type ImportResult struct {
	Items    int
	Reviews  int
	Skipped  int
	Orphaned int
	Rejected int
}

// ImportLegacy upgrades every v1 record and writes it through svc. Items
// that already exist are skipped; reviews pointing at unknown items are
// counted as orphaned and invalid records as rejected. Ratings are recomputed from the imported reviews.
func ImportLegacy(ctx context.Context, svc *catalog.Service, dump LegacyDump, logger *zap.Logger) (ImportResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var res ImportResult

	tabs, err := svc.ListGroupings(ctx, models.KindTab)
	if err != nil {
		return res, err
	}
	knownTabs := make(map[string]bool, len(tabs))
	for _, t := range tabs {
		knownTabs[t.ID] = true
	}

	for _, legacy := range dump.Items {
		item := legacy.Upgrade("")
		if item.ID == "" {
			item.ID = uuid.NewSHA1(legacyNamespace, []byte(item.Name+"\x00"+strconv.FormatInt(legacy.CreatedAt, 10))).String()
		}
		if item.TabID != "" && !knownTabs[item.TabID] {
			logger.Warn("unknown tab, using the first tab",
				zap.String("item_id", item.ID), zap.String("tab_id", item.TabID))
			item.TabID = ""
		}

		_, err := svc.ImportItem(ctx, item)
		switch {
		case errors.Is(err, catalog.ErrConflict):
			res.Skipped++
		case errors.Is(err, catalog.ErrValidation):
			logger.Warn("item rejected", zap.String("item_id", item.ID), zap.Error(err))
			res.Rejected++
		case err != nil:
			return res, fmt.Errorf("item %s: %w", item.ID, err)
		default:
			res.Items++
		}
	}

	for _, legacy := range dump.Reviews {
		review := legacy.Upgrade()
		_, err := svc.ImportReview(ctx, review)
		switch {
		case errors.Is(err, catalog.ErrConflict):
			res.Skipped++
		case errors.Is(err, catalog.ErrNotFound):
			logger.Warn("review for unknown item", zap.String("review_id", review.ID), zap.String("item_id", review.ItemID))
			res.Orphaned++
		case errors.Is(err, catalog.ErrValidation):
			logger.Warn("review rejected", zap.String("review_id", review.ID), zap.Error(err))
			res.Rejected++
		case err != nil:
			return res, fmt.Errorf("review %s: %w", review.ID, err)
		default:
			res.Reviews++
		}
	}

	logger.Info("legacy dump imported",
		zap.Int("items", res.Items),
		zap.Int("reviews", res.Reviews),
		zap.Int("skipped", res.Skipped),
		zap.Int("orphaned", res.Orphaned),
		zap.Int("rejected", res.Rejected))
	return res, nil
}
