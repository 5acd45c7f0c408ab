package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"

	"github.com/schedops/ediscope/frontend"
)

// Server represents the HTTP server
type Server struct {
	*http.Server
	router  chi.Router
	handler *ReportHandler
}

// NewServer creates a new HTTP server
func NewServer(ctx context.Context, addr string, handler *ReportHandler) (*Server, error) {
	router := chi.NewRouter()

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)

	// Health check
	router.Get("/health", handleHealth)

	// API routes
	router.Route("/api", func(r chi.Router) {
		r.Post("/convert", handler.HandleConvert)
		r.Post("/coverage", handler.HandleCoverage)
		r.Post("/fluctuations", handler.HandleFluctuations)
		r.Post("/critical", handler.HandleCritical)
	})

	// Frontend routes (serve embedded form pages)
	fs, err := frontend.GetHTTPFS()
	if err != nil {
		ctxlog.From(ctx).Warn("Failed to get embedded frontend, using fallback",
			"error", err,
		)
		router.Get("/*", handleFallbackHome)
	} else {
		router.Handle("/*", http.FileServer(fs))
	}

	server := &Server{
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
		},
		router:  router,
		handler: handler,
	}

	return server, nil
}

// handleHealth handles health check requests
func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "ediscope",
	}); err != nil {
		ctxlog.From(r.Context()).Error("Failed to encode health response", "error", err)
	}
}

// handleFallbackHome handles the root path when the embedded frontend is not available
func handleFallbackHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>ediscope</title></head>
<body>
    <h1>ediscope</h1>
    <p>EDI schedule coverage reporting service</p>
    <ul>
        <li>POST /api/convert</li>
        <li>POST /api/coverage</li>
        <li>POST /api/fluctuations</li>
        <li>POST /api/critical</li>
    </ul>
</body>
</html>`)); err != nil {
		ctxlog.From(r.Context()).Error("Failed to write fallback home page", "error", err)
	}
}

// writeError writes an error response
func writeError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	var message string
	if goErr := goerr.Unwrap(err); goErr != nil {
		message = goErr.Error()
	} else {
		message = err.Error()
	}

	if err := json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	}); err != nil {
		ctxlog.From(context.Background()).Error("Failed to encode error response", "error", err)
	}
}
