package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/logging"
)

// errorBody is the JSON error envelope.
type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Status    int    `json:"status"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	respondJSON(w, status, errorBody{
		Error:     code,
		Message:   message,
		Status:    status,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// respondServiceError maps the catalog error taxonomy onto HTTP.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, catalog.ErrValidation):
		respondError(w, r, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, catalog.ErrUnauthorized):
		respondError(w, r, http.StatusUnauthorized, "unauthorized", "admin session required")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, "invalid_credentials", "invalid password")
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, catalog.ErrConflict):
		respondError(w, r, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, catalog.ErrPrecondition):
		respondError(w, r, http.StatusPreconditionFailed, "precondition_failed", err.Error())
	case errors.Is(err, catalog.ErrIngestion):
		respondError(w, r, http.StatusBadGateway, "ingestion_failed", "media storage rejected the upload")
	case errors.Is(err, catalog.ErrBackendUnavailable):
		respondError(w, r, http.StatusServiceUnavailable, "backend_unavailable", "backend unavailable")
	default:
		logging.FromContext(r.Context()).Error("unhandled error", zap.Error(err))
		respondError(w, r, http.StatusInternalServerError, "internal", "internal error")
	}
}
