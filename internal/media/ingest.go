package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/meur/sharehub/internal/models"
)

const (
	MaxImageBytes   = 5 << 20
	MaxArchiveBytes = 50 << 20

	uploadConcurrency = 3
)

var (
	// ErrInvalidMedia marks payloads rejected before any upload.
	ErrInvalidMedia = errors.New("media: invalid payload")
	// ErrIngestion marks failures reported by the object store.
	ErrIngestion = errors.New("media: ingestion failed")
)

// Policy bounds what a field accepts.
type Policy struct {
	MaxBytes  int64
	Accept    func(contentType, fileName string) bool
	Overwrite bool
	Label     string
}

var rasterImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// IsRasterImage reports whether contentType is an image format browsers
// render without executing embedded markup.
func IsRasterImage(contentType string) bool {
	return rasterImageTypes[strings.ToLower(strings.TrimSpace(contentType))]
}

// ImagePolicy accepts raster images up to 5 MiB. SVG is refused because
// it can carry script.
var ImagePolicy = Policy{
	MaxBytes: MaxImageBytes,
	Accept: func(contentType, _ string) bool {
		return IsRasterImage(contentType)
	},
	Label: "image",
}

// ArchivePolicy accepts zip archives up to 50 MiB.
var ArchivePolicy = Policy{
	MaxBytes: MaxArchiveBytes,
	Accept: func(contentType, fileName string) bool {
		switch contentType {
		case "application/zip", "application/x-zip-compressed":
			return true
		}
		return strings.HasSuffix(strings.ToLower(fileName), ".zip")
	},
	Label: "zip archive",
}

// WithOverwrite returns a copy of p that replaces existing objects.
func (p Policy) WithOverwrite() Policy {
	p.Overwrite = true
	return p
}

// Ingestor uploads inline media and resolves it to public URLs.
type Ingestor struct {
	store  ObjectStore
	logger *zap.Logger
}

// NewIngestor constructs an Ingestor writing to store.
func NewIngestor(store ObjectStore, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: store, logger: logger}
}

// Validate checks an inline payload against policy without uploading it.
// Stored references and empty refs always pass.
func Validate(ref models.MediaRef, policy Policy) error {
	if !ref.IsInline() {
		return nil
	}
	m := ref.Inline
	if len(m.Data) == 0 {
		return fmt.Errorf("%w: empty %s", ErrInvalidMedia, policy.Label)
	}
	if policy.MaxBytes > 0 && int64(len(m.Data)) > policy.MaxBytes {
		return fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidMedia, policy.Label, policy.MaxBytes)
	}
	if policy.Accept != nil && !policy.Accept(contentTypeOf(m), m.FileName) {
		return fmt.Errorf("%w: %s has unsupported type %q", ErrInvalidMedia, policy.Label, contentTypeOf(m))
	}
	return nil
}

// Check validates ref without uploading it. Inline payloads are checked
// against policy; stored references must be absolute http(s) URLs or
// point below the store's own public URL.
func (in *Ingestor) Check(ref models.MediaRef, policy Policy) error {
	if ref.IsZero() {
		return nil
	}
	if ref.IsInline() {
		return Validate(ref, policy)
	}
	return validateStoredURL(strings.TrimSpace(ref.URL), in.store.PublicURL(""), policy.Label)
}

func validateStoredURL(raw, publicBase, label string) error {
	if publicBase != "" {
		if rest, ok := strings.CutPrefix(raw, publicBase); ok {
			if _, err := CleanObjectPath(rest); err != nil {
				return fmt.Errorf("%w: %s has an invalid media path", ErrInvalidMedia, label)
			}
			return nil
		}
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %s must be an http(s) URL", ErrInvalidMedia, label)
	}
	return nil
}

// Ingest uploads an inline payload to the target's path and returns its
// public URL. Stored references are returned unchanged; empty refs yield "".
func (in *Ingestor) Ingest(ctx context.Context, ref models.MediaRef, target Target, policy Policy) (string, error) {
	if ref.IsZero() {
		return "", nil
	}
	if err := in.Check(ref, policy); err != nil {
		return "", err
	}
	if !ref.IsInline() {
		return strings.TrimSpace(ref.URL), nil
	}

	contentType := contentTypeOf(ref.Inline)
	path, err := BuildPath(target, contentType, ref.Inline.FileName)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidMedia, err)
	}

	err = in.store.Put(ctx, path, ref.Inline.Data, PutOptions{ContentType: contentType, Overwrite: policy.Overwrite})
	if err != nil {
		in.logger.Warn("media upload failed", zap.String("path", path), zap.Error(err))
		return "", fmt.Errorf("%w: put %s: %w", ErrIngestion, path, err)
	}

	in.logger.Debug("media uploaded",
		zap.String("path", path),
		zap.String("content_type", contentType),
		zap.Int("bytes", len(ref.Inline.Data)))
	return in.store.PublicURL(path), nil
}

// IngestAll uploads refs[i] to Indexed(kind, entityID, field, i) with
// bounded concurrency. The result preserves input order; any failure
// fails the whole call.
func (in *Ingestor) IngestAll(ctx context.Context, refs []models.MediaRef, kind, entityID, field string, policy Policy) ([]string, error) {
	for _, ref := range refs {
		if err := in.Check(ref, policy); err != nil {
			return nil, err
		}
	}

	urls := make([]string, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			url, err := in.Ingest(gctx, ref, Indexed(kind, entityID, field, i), policy)
			if err != nil {
				return err
			}
			urls[i] = url
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := urls[:0]
	for _, u := range urls {
		if u != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

func contentTypeOf(m *models.InlineMedia) string {
	ct := strings.ToLower(strings.TrimSpace(m.ContentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	if ct == "" || ct == "application/octet-stream" {
		sniffed := http.DetectContentType(m.Data)
		if i := strings.Index(sniffed, ";"); i >= 0 {
			sniffed = sniffed[:i]
		}
		if sniffed != "application/octet-stream" {
			return sniffed
		}
	}
	if ct == "" {
		return "application/octet-stream"
	}
	return ct
}
