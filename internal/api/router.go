package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/meur/sharehub/internal/auth"
	"github.com/meur/sharehub/internal/catalog"
	"github.com/meur/sharehub/internal/logging"
	"github.com/meur/sharehub/internal/media"
	"github.com/meur/sharehub/internal/models"
)

// maxRequestBytes bounds request bodies: a 50 MiB archive plus images,
// base64-inflated when sent as JSON.
const maxRequestBytes = 96 << 20

// Options configures a Server.
type Options struct {
	Catalog *catalog.Service
	Gate    *auth.Gate
	// Media is served under /media/* when set. Leave nil for backends
	// that publish their own URLs.
	Media          media.ObjectStore
	Logger         *zap.Logger
	AllowedOrigins []string
	// Health reports backend readiness; nil means always healthy.
	Health func(ctx context.Context) error
}

// Server holds the HTTP server dependencies
type Server struct {
	catalog *catalog.Service
	gate    *auth.Gate
	media   media.ObjectStore
	logger  *zap.Logger
	health  func(ctx context.Context) error
	origins []string
	router  chi.Router
}

// New creates a new API server
func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:*"}
	}
	s := &Server{
		catalog: opts.Catalog,
		gate:    opts.Gate,
		media:   opts.Media,
		logger:  logger,
		health:  opts.Health,
		origins: origins,
		router:  chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Router exposes the router so callers can mount extra handlers.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Authorization"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	s.router.Use(s.sessionMiddleware)
}

func (s *Server) setupRoutes() {
	s.router.Route("/api", func(r chi.Router) {
		// Items
		r.Get("/items", s.handleListItems)
		r.Post("/items", s.handleCreateItem)
		r.Get("/items/{id}", s.handleGetItem)
		r.Delete("/items/{id}", s.handleDeleteItem)
		r.Post("/items/{id}/downloads", s.handleIncrementDownloads)

		// Reviews
		r.Get("/items/{id}/reviews", s.handleListItemReviews)
		r.Post("/items/{id}/reviews", s.handleCreateReview)
		r.Delete("/items/{id}/reviews/{reviewID}", s.handleDeleteReview)
		r.Get("/reviews", s.handleListReviews)

		// Registries
		r.Route("/categories", s.groupingRoutes(models.KindCategory))
		r.Route("/tabs", s.groupingRoutes(models.KindTab))

		// Home settings
		r.Get("/settings/home", s.handleGetHomeSettings)
		r.Put("/settings/home", s.handleUpdateHomeSettings)

		// Admin gate
		r.Post("/admin/login", s.handleLogin)
		r.Get("/admin/session", s.handleGetSession)
		r.Delete("/admin/session", s.handleLogout)
	})

	if s.media != nil {
		s.router.Get("/media/*", s.handleGetMedia)
	}

	// Health check
	s.router.Get("/health", s.handleHealth)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(r.Context()); err != nil {
			logging.FromContext(r.Context()).Warn("health check failed", zap.Error(err))
			respondError(w, r, http.StatusServiceUnavailable, "backend_unavailable", "backend unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// sessionMiddleware resolves a bearer token to its admin session. Requests
// without a valid token continue as anonymous; gated operations reject them.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" || s.gate == nil {
			next.ServeHTTP(w, r)
			return
		}
		session, err := s.gate.Authenticate(token)
		if err != nil {
			logging.FromContext(r.Context()).Debug("ignoring invalid bearer token", zap.Error(err))
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithSession(r.Context(), session)))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// --- Response helpers ---

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func decodeJSON(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}
