package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/meur/sharehub/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

func newMemIngestor() (*Ingestor, *LocalStore) {
	store := NewLocalStoreFs(afero.NewMemMapFs(), "/media")
	return NewIngestor(store, nil), store
}

func TestIngestInline(t *testing.T) {
	ctx := context.Background()
	in, store := newMemIngestor()

	url, err := in.Ingest(ctx, models.InlineRef(pngHeader, "image/png", ""), Single("items", "x1", "icon"), ImagePolicy)
	require.NoError(t, err)
	assert.Equal(t, "/media/items/x1/icon.png", url)

	r, err := store.Open(ctx, "items/x1/icon.png")
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, pngHeader, data)
}

func TestIngestStoredAndEmpty(t *testing.T) {
	in, _ := newMemIngestor()

	url, err := in.Ingest(context.Background(), models.StoredRef(" https://cdn.example/icon.png "), Single("items", "x", "icon"), ImagePolicy)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/icon.png", url)

	url, err = in.Ingest(context.Background(), models.MediaRef{}, Single("items", "x", "icon"), ImagePolicy)
	require.NoError(t, err)
	assert.Empty(t, url)
}

func TestIngestValidation(t *testing.T) {
	in, _ := newMemIngestor()
	ctx := context.Background()

	t.Run("wrong type", func(t *testing.T) {
		_, err := in.Ingest(ctx, models.InlineRef([]byte("hello"), "text/plain", ""), Single("items", "x", "icon"), ImagePolicy)
		assert.ErrorIs(t, err, ErrInvalidMedia)
	})

	t.Run("too large", func(t *testing.T) {
		big := bytes.Repeat([]byte{1}, MaxImageBytes+1)
		_, err := in.Ingest(ctx, models.InlineRef(big, "image/png", ""), Single("items", "x", "icon"), ImagePolicy)
		assert.ErrorIs(t, err, ErrInvalidMedia)
	})

	t.Run("zip by file name", func(t *testing.T) {
		url, err := in.Ingest(ctx, models.InlineRef([]byte("PK\x03\x04rest"), "", "tool.zip"), Single("items", "x", "archive"), ArchivePolicy)
		require.NoError(t, err)
		assert.Equal(t, "/media/items/x/archive.zip", url)
	})

	t.Run("svg refused", func(t *testing.T) {
		svg := []byte(`<svg xmlns="http://www.w3.org/2000/svg"><script>alert(1)</script></svg>`)
		_, err := in.Ingest(ctx, models.InlineRef(svg, "image/svg+xml", "icon.svg"), Single("items", "x", "icon"), ImagePolicy)
		assert.ErrorIs(t, err, ErrInvalidMedia)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := in.Ingest(ctx, models.InlineRef(pngHeader, "image/png", "a.png"), Single("items", "y", "archive"), ArchivePolicy)
		assert.ErrorIs(t, err, ErrInvalidMedia)
	})
}

func TestCheckStoredReferences(t *testing.T) {
	in, _ := newMemIngestor()

	tests := []struct {
		name string
		url  string
		ok   bool
	}{
		{"https", "https://cdn.example/icon.png", true},
		{"http", "http://cdn.example/icon.png", true},
		{"own media path", "/media/items/x/icon.png", true},
		{"javascript", "javascript:alert(1)", false},
		{"data without base64", "data:text/html,<script>", false},
		{"relative outside media", "/etc/passwd", false},
		{"media traversal", "/media/../secret.png", false},
		{"scheme without host", "https:///icon.png", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := in.Check(models.StoredRef(tt.url), ImagePolicy)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidMedia)
			}
		})
	}

	_, err := in.Ingest(context.Background(), models.StoredRef("javascript:alert(1)"), Single("items", "x", "icon"), ImagePolicy)
	assert.ErrorIs(t, err, ErrInvalidMedia)
}

func TestIsRasterImage(t *testing.T) {
	assert.True(t, IsRasterImage("image/png"))
	assert.True(t, IsRasterImage(" IMAGE/JPEG "))
	assert.False(t, IsRasterImage("image/svg+xml"))
	assert.False(t, IsRasterImage("application/zip"))
}

func TestIngestDuplicatePath(t *testing.T) {
	in, _ := newMemIngestor()
	ctx := context.Background()
	ref := models.InlineRef(pngHeader, "image/png", "")

	_, err := in.Ingest(ctx, ref, Single("home", "settings", "banner"), ImagePolicy)
	require.NoError(t, err)

	_, err = in.Ingest(ctx, ref, Single("home", "settings", "banner"), ImagePolicy)
	assert.ErrorIs(t, err, ErrIngestion)
	assert.ErrorIs(t, err, ErrObjectExists)

	_, err = in.Ingest(ctx, ref, Single("home", "settings", "banner"), ImagePolicy.WithOverwrite())
	assert.NoError(t, err)
}

func TestIngestAllPreservesOrder(t *testing.T) {
	in, _ := newMemIngestor()
	refs := []models.MediaRef{
		models.InlineRef(pngHeader, "image/png", ""),
		models.StoredRef("https://cdn.example/1.png"),
		models.InlineRef(pngHeader, "image/gif", ""),
	}

	urls, err := in.IngestAll(context.Background(), refs, "items", "x", "screenshot", ImagePolicy)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"/media/items/x/screenshot-0.png",
		"https://cdn.example/1.png",
		"/media/items/x/screenshot-2.gif",
	}, urls)
}

type failingStore struct {
	*LocalStore
	mu    sync.Mutex
	calls int
}

func (f *failingStore) Put(ctx context.Context, p string, data []byte, opts PutOptions) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return errors.New("bucket offline")
}

func TestIngestAllFailsAsAWhole(t *testing.T) {
	store := &failingStore{LocalStore: NewLocalStoreFs(afero.NewMemMapFs(), "/media")}
	in := NewIngestor(store, nil)

	refs := []models.MediaRef{
		models.InlineRef(pngHeader, "image/png", ""),
		models.InlineRef(pngHeader, "image/png", ""),
	}
	urls, err := in.IngestAll(context.Background(), refs, "items", "x", "screenshot", ImagePolicy)
	assert.ErrorIs(t, err, ErrIngestion)
	assert.Nil(t, urls)
}

func TestIngestAllValidatesBeforeUpload(t *testing.T) {
	store := &failingStore{LocalStore: NewLocalStoreFs(afero.NewMemMapFs(), "/media")}
	in := NewIngestor(store, nil)

	refs := []models.MediaRef{
		models.InlineRef(pngHeader, "image/png", ""),
		models.InlineRef([]byte("text"), "text/plain", ""),
	}
	_, err := in.IngestAll(context.Background(), refs, "items", "x", "screenshot", ImagePolicy)
	assert.ErrorIs(t, err, ErrInvalidMedia)
	assert.Zero(t, store.calls)
}
