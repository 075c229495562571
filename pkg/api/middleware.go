package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chicogong/pattern-planner/pkg/auth"
	"github.com/chicogong/pattern-planner/pkg/logging"
)

// Middleware wraps a handler
type Middleware func(http.HandlerFunc) http.HandlerFunc

// LoggingMiddleware logs each request and stores a request-scoped logger
// in its context
func LoggingMiddleware(logger *slog.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			reqLogger := logger.With("method", r.Method, "path", r.URL.Path)
			if id := r.Header.Get("X-Request-ID"); id != "" {
				reqLogger = reqLogger.With("request_id", id)
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next(wrapped, r.WithContext(logging.WithLogger(r.Context(), reqLogger)))

			reqLogger.Info("Request handled.",
				"status", wrapped.statusCode,
				"remote", r.RemoteAddr,
				"duration", time.Since(start),
			)
		}
	}
}

// CORSMiddleware adds CORS headers
func CORSMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// RecoveryMiddleware turns a handler panic into a 500 response
func RecoveryMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				logging.FromContext(r.Context()).Error("Handler panicked.", "panic", err)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte(`{"error":"internal_server_error","message":"Internal server error","code":500}`))
			}
		}()

		next(w, r)
	}
}

// AuthMiddleware adapts the auth middleware to the handler chain
func AuthMiddleware(m *auth.Middleware) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return m.Handler(next).ServeHTTP
	}
}

// Chain combines middlewares; the first one runs outermost
func Chain(handler http.HandlerFunc, middlewares ...Middleware) http.HandlerFunc {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
