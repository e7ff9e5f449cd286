package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// GetRequestID returns the request ID from the context, or "" when the
// request ID middleware did not run.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// requestIDMiddleware accepts a client X-Request-ID or mints one, exposing
// it on the response and the request context.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// corsMiddleware adds CORS headers for allowed origins and answers
// preflight requests.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			for _, allowed := range s.corsOrigins {
				if allowed == "*" || allowed == origin {
					header := origin
					if allowed == "*" {
						header = "*"
					}
					w.Header().Set("Access-Control-Allow-Origin", header)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")
					w.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")
					w.Header().Set("Access-Control-Max-Age", "86400")
					break
				}
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs each request with its status and duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		requestID := GetRequestID(r.Context())

		log := s.logger.Info
		if wrapped.statusCode >= 400 {
			log = s.logger.Warn
		}
		if wrapped.statusCode >= 500 {
			log = s.logger.Error
		}
		log("%s %s %d %s request_id=%s", r.Method, r.URL.Path, wrapped.statusCode, duration.Round(time.Millisecond), requestID)
	})
}

// recoveryMiddleware turns handler panics into a 500 with the standard
// error envelope.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				s.logger.Error("panic serving %s %s: %v", r.Method, r.URL.Path, p)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"detail":"internal server error"}`))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request count and duration.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.metrics.RecordHTTPRequest(
			r.Method,
			normalizePath(r.URL.Path),
			strconv.Itoa(wrapped.statusCode),
			time.Since(start).Seconds(),
		)
	})
}

// normalizePath collapses secret names out of metric labels to keep
// cardinality bounded.
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/secrets/") && len(path) > len("/secrets/") {
		return "/secrets/{name}"
	}
	return path
}
