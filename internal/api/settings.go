package api

import (
	"net/http"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/models"
)

// handleGetHomeSettings returns the landing page settings
func (s *Server) handleGetHomeSettings(w http.ResponseWriter, r *http.Request) {
	hs, err := s.catalog.GetHomeSettings(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hs)
}

// handleUpdateHomeSettings replaces the landing page settings
func (s *Server) handleUpdateHomeSettings(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req models.HomeSettingsUpdate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_failed", "invalid request body: "+err.Error())
		return
	}
	hs, err := s.catalog.UpdateHomeSettings(r.Context(), auth.FromContext(r.Context()), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, hs)
}
