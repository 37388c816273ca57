package api

import (
	"net/http"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
)

type loginRequest struct {
	Password string `json:"password"`
}

type loginResponse struct {
	Token   string       `json:"token"`
	Session auth.Session `json:"session"`
}

// handleLogin exchanges the admin password for a bearer token
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "validation_failed", "invalid request body")
		return
	}
	session, token, err := s.gate.Login(req.Password)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, loginResponse{Token: token, Session: session})
}

// handleGetSession reports the caller's session
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if !session.IsAdmin() {
		respondServiceError(w, r, catalog.ErrUnauthorized)
		return
	}
	respondJSON(w, http.StatusOK, session)
}

// handleLogout revokes the caller's session
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	session := auth.FromContext(r.Context())
	if !session.IsAdmin() {
		respondServiceError(w, r, catalog.ErrUnauthorized)
		return
	}
	s.gate.Logout(session)
	w.WriteHeader(http.StatusNoContent)
}
