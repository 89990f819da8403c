package server

import (
	"net/http"
	"strings"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jonwraymond/postboard/observe"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

// requestID reuses a client supplied ID or creates one, echoes it and puts it
// on the context so every log line of the request carries it.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = observe.NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(observe.ContextWithRequestID(r.Context(), id)))
	})
}

// logRequests logs one line per request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	log := s.log.With("http")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		fields := []observe.Field{
			observe.F("method", r.Method),
			observe.F("path", r.URL.Path),
			observe.F("status", status),
			observe.F("bytes", ww.BytesWritten()),
			observe.F("duration_ms", time.Since(start)),
		}
		switch {
		case status >= 500:
			log.Error(r.Context(), "request", fields...)
		case status >= 400:
			log.Warn(r.Context(), "request", fields...)
		default:
			log.Debug(r.Context(), "request", fields...)
		}
	})
}

// securityHeaders sets the headers every response carries and disables
// shared caching of admin and profile responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if isPrivatePath(r.URL.Path) {
			h.Set("Cache-Control", "private, no-cache")
		}
		next.ServeHTTP(w, r)
	})
}

func isPrivatePath(p string) bool {
	return strings.HasPrefix(p, "/admin") ||
		strings.HasPrefix(p, "/api/admin") ||
		strings.HasPrefix(p, "/api/me") ||
		strings.Contains(p, "/profile")
}
