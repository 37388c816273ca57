package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/models"
	"github.com/meur/sharehub/internal/storage"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n0000")

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	objects := media.NewLocalStoreFs(afero.NewMemMapFs(), "/media")
	svc, err := catalog.New(catalog.Deps{Store: store, Media: media.NewIngestor(objects, nil)})
	require.NoError(t, err)
	gate, err := auth.NewGate(auth.GateConfig{SessionSecret: "test"})
	require.NoError(t, err)

	srv := httptest.NewServer(New(Options{
		Catalog: svc,
		Gate:    gate,
		Media:   objects,
		Health:  store.Ping,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body any) *http.Response {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, srv.URL+path, rdr)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/admin/login", "", map[string]string{"password": auth.DefaultPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[loginResponse](t, resp).Token
}

func createItem(t *testing.T, srv *httptest.Server, name string) models.Item {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "/api/items", "", map[string]any{
		"name":             name,
		"description":      name + " short",
		"long_description": "**" + name + "** long",
		"category":         "外観",
		"icon":             "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
		"download_url":     "https://example.com/file.zip",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Item](t, resp)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestItemLifecycle(t *testing.T) {
	srv := newTestServer(t)
	item := createItem(t, srv, "Dark Reader")
	assert.Equal(t, "/media/items/"+item.ID+"/icon.png", item.Icon)

	t.Run("media is served", func(t *testing.T) {
		resp := do(t, srv, http.MethodGet, item.Icon, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, pngBytes, body)
		assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
		assert.Equal(t, "default-src 'none'; sandbox", resp.Header.Get("Content-Security-Policy"))
		assert.Empty(t, resp.Header.Get("Content-Disposition"))
	})

	t.Run("detail renders markdown", func(t *testing.T) {
		resp := do(t, srv, http.MethodGet, "/api/items/"+item.ID, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		detail := decode[map[string]any](t, resp)
		assert.Equal(t, "Dark Reader", detail["name"])
		assert.Contains(t, detail["long_description_html"], "<strong>Dark Reader</strong>")
	})

	t.Run("search", func(t *testing.T) {
		createItem(t, srv, "Tab Sorter")
		resp := do(t, srv, http.MethodGet, "/api/items?q=dark&category=%E3%81%99%E3%81%B9%E3%81%A6&sort=rating", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		list := decode[models.ItemList](t, resp)
		require.Equal(t, 1, list.TotalCount)
		assert.Equal(t, item.ID, list.Items[0].ID)

		resp = do(t, srv, http.MethodGet, "/api/items?sort=stars", "", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("downloads", func(t *testing.T) {
		resp := do(t, srv, http.MethodPost, "/api/items/"+item.ID+"/downloads", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.EqualValues(t, 1, decode[models.Item](t, resp).Downloads)
	})

	t.Run("delete requires admin", func(t *testing.T) {
		resp := do(t, srv, http.MethodDelete, "/api/items/"+item.ID, "", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		body := decode[errorBody](t, resp)
		assert.Equal(t, "unauthorized", body.Error)
		assert.NotEmpty(t, body.RequestID)

		token := login(t, srv)
		resp = do(t, srv, http.MethodDelete, "/api/items/"+item.ID, token, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = do(t, srv, http.MethodPost, "/api/items/"+item.ID+"/downloads", "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestCreateItemValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodPost, "/api/items", "", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_failed", decode[errorBody](t, resp).Error)

	resp = do(t, srv, http.MethodPost, "/api/items", "", map[string]any{"icon": "data:image/png;base64,###"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateItemMultipart(t *testing.T) {
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"name":             "Uploader",
		"description":      "short",
		"long_description": "long",
		"featured":         "true",
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	writeFile := func(field, name, contentType string, data []byte) {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	writeFile("icon", "icon.png", "image/png", pngBytes)
	writeFile("screenshots", "a.png", "image/png", pngBytes)
	writeFile("screenshots", "b.png", "image/png", pngBytes)
	writeFile("archive", "tool.zip", "application/zip", []byte("PK\x03\x04rest"))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/items", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	item := decode[models.Item](t, resp)
	assert.True(t, item.Featured)
	assert.Len(t, item.Screenshots, 2)
	assert.True(t, strings.HasSuffix(item.DownloadURL, "/archive.zip"))
	assert.Equal(t, "tool.zip", item.DownloadFileName)
	assert.Equal(t, models.DefaultCategoryName, item.Category)

	archive := do(t, srv, http.MethodGet, item.DownloadURL, "", nil)
	require.Equal(t, http.StatusOK, archive.StatusCode)
	assert.Equal(t, `attachment; filename="archive.zip"`, archive.Header.Get("Content-Disposition"))
	assert.Equal(t, "default-src 'none'; sandbox", archive.Header.Get("Content-Security-Policy"))
}

func TestCreateItemRejectsUnsafeMedia(t *testing.T) {
	srv := newTestServer(t)
	svg := `<svg xmlns="http://www.w3.org/2000/svg"><script>alert(document.domain)</script></svg>`

	for name, icon := range map[string]string{
		"svg payload":   "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg)),
		"script url":    "javascript:alert(1)",
		"relative path": "/etc/passwd",
	} {
		t.Run(name, func(t *testing.T) {
			resp := do(t, srv, http.MethodPost, "/api/items", "", map[string]any{
				"name":             "Unsafe",
				"description":      "short",
				"long_description": "long",
				"icon":             icon,
				"download_url":     "https://example.com/file.zip",
			})
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "validation_failed", decode[errorBody](t, resp).Error)
		})
	}

	resp := do(t, srv, http.MethodGet, "/api/items", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Zero(t, decode[models.ItemList](t, resp).TotalCount)
}

func TestReviewsFlow(t *testing.T) {
	srv := newTestServer(t)
	item := createItem(t, srv, "Rated")

	var fourID string
	for _, rating := range []int{5, 5, 4} {
		resp := do(t, srv, http.MethodPost, "/api/items/"+item.ID+"/reviews", "", models.ReviewCreate{Rating: rating, Comment: "good", Author: "kei"})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		m := decode[models.ReviewMutation](t, resp)
		if rating == 4 {
			fourID = m.Review.ID
			assert.Equal(t, 4.7, m.Item.Rating)
			assert.Equal(t, 3, m.Item.ReviewCount)
		}
	}

	resp := do(t, srv, http.MethodPost, "/api/items/"+item.ID+"/reviews", "", models.ReviewCreate{Rating: 5, Comment: "good", Author: " "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/items/"+item.ID+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Review](t, resp), 3)

	resp = do(t, srv, http.MethodDelete, "/api/items/"+item.ID+"/reviews/"+fourID, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := login(t, srv)
	resp = do(t, srv, http.MethodDelete, "/api/items/"+item.ID+"/reviews/"+fourID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := decode[models.ReviewMutation](t, resp)
	assert.Equal(t, 5.0, m.Item.Rating)
	assert.Equal(t, 2, m.Item.ReviewCount)

	resp = do(t, srv, http.MethodGet, "/api/reviews", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Review](t, resp), 2)

	resp = do(t, srv, http.MethodGet, "/api/items/missing/reviews", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRegistryEndpoints(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	resp := do(t, srv, http.MethodPost, "/api/categories", "", models.GroupingCreate{Name: "外観"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, name := range []string{"外観", "生産性", "その他"} {
		resp := do(t, srv, http.MethodPost, "/api/categories", token, models.GroupingCreate{Name: name})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp = do(t, srv, http.MethodPost, "/api/categories", token, models.GroupingCreate{Name: "外観"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/categories", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cats := decode[[]models.Category](t, resp)
	require.Len(t, cats, 3)

	resp = do(t, srv, http.MethodDelete, "/api/categories/"+cats[0].ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	remaining := decode[[]models.Category](t, resp)
	require.Len(t, remaining, 2)
	assert.Equal(t, 0, remaining[0].Order)
	assert.Equal(t, 1, remaining[1].Order)

	name := "ツール"
	resp = do(t, srv, http.MethodPut, "/api/categories/"+cats[2].ID, token, models.GroupingUpdate{Name: &name})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, name, decode[models.Category](t, resp).Name)

	resp = do(t, srv, http.MethodDelete, "/api/tabs/"+models.DefaultTabID, token, nil)
	assert.Equal(t, http.StatusPreconditionFailed, resp.StatusCode)
	assert.Equal(t, "precondition_failed", decode[errorBody](t, resp).Error)
}

func TestAdminSession(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/admin/login", "", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid_credentials", decode[errorBody](t, resp).Error)

	token := login(t, srv)
	resp = do(t, srv, http.MethodGet, "/api/admin/session", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[auth.Session](t, resp).Admin)

	resp = do(t, srv, http.MethodDelete, "/api/admin/session", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = do(t, srv, http.MethodGet, "/api/admin/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHomeSettingsEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodGet, "/api/settings/home", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ShareHub", decode[models.HomeSettings](t, resp).Title)

	update := map[string]any{
		"title":        "Makers",
		"subtitle":     "sub",
		"banner_image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	}
	resp = do(t, srv, http.MethodPut, "/api/settings/home", "", update)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := login(t, srv)
	resp = do(t, srv, http.MethodPut, "/api/settings/home", token, update)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hs := decode[models.HomeSettings](t, resp)
	assert.Equal(t, "/media/home/settings/banner.png", hs.BannerImage)
}

func TestMediaNotFound(t *testing.T) {
	srv := newTestServer(t)
	resp := do(t, srv, http.MethodGet, "/media/items/none/icon.png", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreateItemMultipartRemovesTempFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	srv := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range map[string]string{
		"name":             "Large",
		"description":      "short",
		"long_description": "long",
		"icon":             "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngBytes),
	} {
		require.NoError(t, mw.WriteField(k, v))
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="archive"; filename="large.zip"`)
	h.Set("Content-Type", "application/zip")
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	// larger than the in-memory multipart limit, so the part spills to disk
	_, err = part.Write(append([]byte("PK\x03\x04"), make([]byte, multipartMemory+(1<<20))...))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/items", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	leftovers, err := filepath.Glob(filepath.Join(tmp, "multipart-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}
