package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/models"
)

// handleListReviews returns every review
func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.catalog.ListReviews(r.Context())
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}

// handleListItemReviews returns the reviews of one item
func (s *Server) handleListItemReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.catalog.ListItemReviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, reviews)
}

// handleCreateReview posts a review and returns it with the re-rated item
func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req models.ReviewCreate
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}

	result, err := s.catalog.CreateReview(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// handleDeleteReview removes a review and returns the re-rated item
func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	result, err := s.catalog.DeleteReview(r.Context(), auth.FromContext(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "reviewID"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
