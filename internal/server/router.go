package server

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/telhawk-systems/debugconsole/internal/auth"
	"github.com/telhawk-systems/debugconsole/internal/handlers"
	"github.com/telhawk-systems/debugconsole/internal/middleware"
	"github.com/telhawk-systems/debugconsole/internal/session"
)

type Options struct {
	AllowedOrigins []string
	Auth           *auth.Middleware
	// Logger receives access logs; slog.Default() when nil.
	Logger *slog.Logger
	// Sessions is nil when Redis is disabled.
	Sessions *session.Middleware
}

// NewRouter registers the debug console API. Requests pass through CORS,
// request ID, access logging, session and authentication middleware in that
// order.
func NewRouter(h *handlers.Handler, opts Options) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", h.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Recording is open to anonymous console pages.
	mux.HandleFunc("POST /api/v1/debug/events", h.RecordEvent)

	mux.Handle("GET /api/v1/debug/events", opts.Auth.RequireAuth(http.HandlerFunc(h.ListEvents)))
	mux.Handle("GET /api/v1/debug/events/{id}", opts.Auth.RequireAuth(http.HandlerFunc(h.GetEvent)))
	mux.Handle("DELETE /api/v1/debug/events", opts.Auth.RequireAuth(http.HandlerFunc(h.PurgeEvents)))

	mux.Handle("POST /api/v1/sessions", opts.Auth.RequireAuth(http.HandlerFunc(h.CreateSession)))
	mux.HandleFunc("DELETE /api/v1/sessions", h.DeleteSession)

	var handler http.Handler = opts.Auth.Authenticate(mux)
	if opts.Sessions != nil {
		handler = opts.Sessions.Handler(handler)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	handler = logRequests(logger, handler)
	handler = middleware.RequestID(handler)

	c := cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
	return c.Handler(handler)
}
