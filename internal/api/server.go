// Package api serves the ranking endpoints and the dashboard bundle.
package api

import (
	"context"
	"encoding/json"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/klauspost/compress/gzhttp"

	"github.com/ConfabulousDev/wakalog/internal/analytics"
	"github.com/ConfabulousDev/wakalog/internal/logger"
	"github.com/ConfabulousDev/wakalog/internal/ratelimit"
)

// Ranker answers ranking queries. *analytics.Store satisfies it.
type Ranker interface {
	Rank(ctx context.Context, item analytics.ItemType, from, to time.Time) ([]analytics.RankingItem, error)
}

// Pinger reports backend health. *db.DB satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	// Prefix mounts the API and dashboard under a path such as "/waka".
	// Empty means the root.
	Prefix string
	// Static is the dashboard bundle. Nil uses the built-in placeholder page.
	Static fs.FS
	// AllowedOrigins enables CORS for a dashboard served from elsewhere.
	AllowedOrigins []string
	// Limiter throttles /api requests per client. Nil disables throttling.
	Limiter ratelimit.Limiter
}

// Server holds dependencies for API handlers
type Server struct {
	ranker Ranker
	pinger Pinger
	opts   Options
}

// NewServer creates a new API server
func NewServer(ranker Ranker, pinger Pinger, opts Options) *Server {
	if opts.Static == nil {
		opts.Static = defaultStatic()
	}
	return &Server{ranker: ranker, pinger: pinger, opts: opts}
}

// SetupRoutes configures HTTP routes
func (s *Server) SetupRoutes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.Middleware)
	r.Use(middleware.Recoverer)
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.opts.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)

	if s.opts.Prefix == "" {
		s.mount(r)
	} else {
		r.Route(s.opts.Prefix, s.mount)
	}

	return gzhttp.GzipHandler(r)
}

func (s *Server) mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		if s.opts.Limiter != nil {
			r.Use(ratelimit.Middleware(s.opts.Limiter))
		}
		r.Get("/{item}/{from}/{to}", HandleGetRanking(s.ranker))
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			respondError(w, http.StatusNotFound, "Not found")
		})
	})

	r.Get("/*", HandleStatic(s.opts.Static))
}

// handleHealth reports ok when the database answers a ping.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			logger.Ctx(r.Context()).Error("health check failed", "error", err)
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error JSON response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
