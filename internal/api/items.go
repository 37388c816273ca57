package api

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/logging"
	"github.com/meur/sharehub/internal/models"
	"github.com/meur/sharehub/internal/render"
)

const multipartMemory = 32 << 20

// itemDetail is the item page payload.
type itemDetail struct {
	models.Item
	LongDescriptionHTML string `json:"long_description_html"`
}

// handleListItems searches the catalog
func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sortKey, err := catalog.ParseSortKey(q.Get("sort"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	query := catalog.Query{
		Text:     q.Get("q"),
		Category: q.Get("category"),
		Sort:     sortKey,
	}
	if raw := q.Get("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "validation_failed", "featured must be true or false")
			return
		}
		query.Featured = &featured
	}

	items, err := s.catalog.SearchItems(r.Context(), query)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, models.ItemList{Items: items, TotalCount: len(items)})
}

// handleGetItem returns one item with its rendered long description
func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	html, err := render.Markdown(item.LongDescription)
	if err != nil {
		logging.FromContext(r.Context()).Warn("render long description", zap.String("item_id", item.ID), zap.Error(err))
	}
	respondJSON(w, http.StatusOK, itemDetail{Item: item, LongDescriptionHTML: html})
}

// handleCreateItem accepts JSON (media as URLs or data URLs) or a multipart form
func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req models.ItemCreate
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		var err error
		req, err = parseItemForm(r)
		if r.MultipartForm != nil {
			defer r.MultipartForm.RemoveAll()
		}
		if err != nil {
			respondError(w, r, http.StatusBadRequest, "validation_failed", err.Error())
			return
		}
	} else if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_failed", "invalid request body: "+err.Error())
		return
	}

	item, err := s.catalog.CreateItem(r.Context(), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// handleDeleteItem deletes an item and its reviews
func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	err := s.catalog.DeleteItem(r.Context(), auth.FromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleIncrementDownloads records one download
func (s *Server) handleIncrementDownloads(w http.ResponseWriter, r *http.Request) {
	item, err := s.catalog.IncrementDownloads(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// parseItemForm reads a multipart submission. Media fields accept either
// a file part or a text value holding a URL or data URL.
func parseItemForm(r *http.Request) (models.ItemCreate, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return models.ItemCreate{}, fmt.Errorf("invalid multipart form: %w", err)
	}
	form := r.MultipartForm
	value := func(key string) string {
		if v := form.Value[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}

	req := models.ItemCreate{
		Name:            value("name"),
		Description:     value("description"),
		LongDescription: value("long_description"),
		Category:        value("category"),
		TabID:           value("tab_id"),
		DownloadURL:     value("download_url"),
		UploaderName:    value("uploader_name"),
		DiscordName:     value("discord_name"),
		Email:           value("email"),
	}
	if raw := value("featured"); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return models.ItemCreate{}, errors.New("featured must be true or false")
		}
		req.Featured = featured
	}

	var err error
	if req.Icon, err = formMedia(form, "icon"); err != nil {
		return models.ItemCreate{}, err
	}
	if req.Archive, err = formMedia(form, "archive"); err != nil {
		return models.ItemCreate{}, err
	}
	for _, fh := range form.File["screenshots"] {
		ref, err := fileRef(fh)
		if err != nil {
			return models.ItemCreate{}, err
		}
		req.Screenshots = append(req.Screenshots, ref)
	}
	for _, v := range form.Value["screenshots"] {
		ref, err := models.ParseMediaRef(v)
		if err != nil {
			return models.ItemCreate{}, fmt.Errorf("screenshots: %w", err)
		}
		req.Screenshots = append(req.Screenshots, ref)
	}
	return req, nil
}

func formMedia(form *multipart.Form, key string) (models.MediaRef, error) {
	if files := form.File[key]; len(files) > 0 {
		return fileRef(files[0])
	}
	if v := form.Value[key]; len(v) > 0 {
		ref, err := models.ParseMediaRef(v[0])
		if err != nil {
			return models.MediaRef{}, fmt.Errorf("%s: %w", key, err)
		}
		return ref, nil
	}
	return models.MediaRef{}, nil
}

func fileRef(fh *multipart.FileHeader) (models.MediaRef, error) {
	f, err := fh.Open()
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	contentType := strings.TrimSpace(fh.Header.Get("Content-Type"))
	return models.InlineRef(data, contentType, fh.Filename), nil
}
