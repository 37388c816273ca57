package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/logging"
	"github.com/meur/sharehub/internal/media"
)

// handleGetMedia streams a stored object
func (s *Server) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	p, err := media.CleanObjectPath(chi.URLParam(r, "*"))
	if err != nil {
		respondError(w, r, http.StatusNotFound, "not_found", "media not found")
		return
	}

	obj, err := s.media.Open(r.Context(), p)
	if errors.Is(err, media.ErrObjectNotFound) {
		respondError(w, r, http.StatusNotFound, "not_found", "media not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("open media", zap.String("path", p), zap.Error(err))
		respondError(w, r, http.StatusServiceUnavailable, "backend_unavailable", "media unavailable")
		return
	}
	defer obj.Close()

	ct, _, _ := mime.ParseMediaType(mime.TypeByExtension(path.Ext(p)))
	if ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	// Objects share the API origin, so nothing served here may run script.
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if !media.IsRasterImage(ct) {
		w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(path.Base(p)))
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := io.Copy(w, obj); err != nil {
		logging.FromContext(r.Context()).Warn("stream media", zap.String("path", p), zap.Error(err))
	}
}
