// Package api serves the idmapd admin HTTP surface: health probe,
// Prometheus metrics and resolver cache administration.
package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/idmapd/internal/logger"
	"github.com/marmos91/idmapd/pkg/idmap"
	"github.com/marmos91/idmapd/pkg/metrics"
)

// NewRouter creates and configures the chi router.
//
// Routes:
//   - GET  /health - liveness probe
//   - GET  /metrics - Prometheus metrics (when enabled)
//   - GET  /api/v1/stats - cache sizes and hit/miss counters
//   - POST /api/v1/cache/flush - drop all cached identities
func NewRouter(resolver *idmap.Resolver) http.Handler {
	r := chi.NewRouter()

	// Middleware stack - order matters
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", handleHealth)

	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", handleStats(resolver))
		r.Post("/cache/flush", handleFlush(resolver))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func handleStats(resolver *idmap.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, resolver.Stats())
	}
}

func handleFlush(resolver *idmap.Resolver) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resolver.Flush()
		writeJSON(w, http.StatusOK, map[string]string{"status": "flushed"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode API response", "error", err)
	}
}

func isHealthPath(path string) bool {
	return path == "/health" || strings.HasPrefix(path, "/health/")
}

// requestLogger logs requests through the internal logger. Healthcheck
// requests log at DEBUG to keep probe noise out of the logs.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logArgs := []any{
			"request_id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).String(),
		}
		if isHealthPath(r.URL.Path) {
			logger.Debug("API request completed", logArgs...)
		} else {
			logger.Info("API request completed", logArgs...)
		}
	})
}
