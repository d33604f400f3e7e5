package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/maauso/charactercast-api/internal/auth"
)

// Config contains server configuration options.
type Config struct {
	// AllowedOrigins is the list of allowed CORS origins.
	AllowedOrigins []string
	// Verifier resolves bearer tokens to owners.
	Verifier auth.Verifier
	// StaticDir is served under StaticPath when both are set. Used for
	// artifacts kept on local disk.
	StaticDir  string
	StaticPath string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		AllowedOrigins: []string{"*"},
	}
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(h *Handlers, logger *slog.Logger, cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
		CORSMiddleware(cfg.AllowedOrigins),
	)

	r.Get("/health", h.Health)

	if cfg.StaticDir != "" && cfg.StaticPath != "" {
		prefix := "/" + strings.Trim(cfg.StaticPath, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.StaticDir))))
	}

	r.Route("/api/jobs", func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.Verifier, logger))
		r.Post("/", h.CreateJob)
		r.Get("/{id}", h.GetJob)
		r.Post("/{id}/process", h.ProcessJob)
		r.Post("/{id}/stages/{stage}", h.RunStage)
	})

	return r
}
