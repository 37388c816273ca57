package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/models"
)

// groupingRoutes mounts list/add/update/delete for one registry.
func (s *Server) groupingRoutes(kind models.GroupingKind) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			entries, err := s.catalog.ListGroupings(r.Context(), kind)
			if err != nil {
				respondServiceError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, entries)
		})

		r.Post("/", func(w http.ResponseWriter, r *http.Request) {
			var req models.GroupingCreate
			if err := decodeJSON(r, &req); err != nil {
				respondError(w, r, http.StatusBadRequest, "validation_failed", "invalid request body")
				return
			}
			entry, err := s.catalog.AddGrouping(r.Context(), auth.FromContext(r.Context()), kind, req)
			if err != nil {
				respondServiceError(w, r, err)
				return
			}
			respondJSON(w, http.StatusCreated, entry)
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			var req models.GroupingUpdate
			if err := decodeJSON(r, &req); err != nil {
				respondError(w, r, http.StatusBadRequest, "validation_failed", "invalid request body")
				return
			}
			entry, err := s.catalog.UpdateGrouping(r.Context(), auth.FromContext(r.Context()), kind, chi.URLParam(r, "id"), req)
			if err != nil {
				respondServiceError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, entry)
		})

		r.Delete("/{id}", func(w http.ResponseWriter, r *http.Request) {
			remaining, err := s.catalog.DeleteGrouping(r.Context(), auth.FromContext(r.Context()), kind, chi.URLParam(r, "id"))
			if err != nil {
				respondServiceError(w, r, err)
				return
			}
			respondJSON(w, http.StatusOK, remaining)
		})
	}
}
