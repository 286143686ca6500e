package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/soundprint/soundprint/pkg/logger"
)

type requestIDKey struct{}

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health/metrics", s.handleMetrics)

	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/tracks/", s.handleTrack)
	mux.HandleFunc("/api/tracks/youtube", s.handleLearnYouTube)

	mux.HandleFunc("/api/identify", s.handleIdentify)

	return corsMiddleware(s.config.AllowedOrigins)(requestIDMiddleware(loggingMiddleware(mux)))
}

// corsMiddleware mirrors the recognizer's CORS policy: allow-list of
// origins, or "*" for every origin, with standard preflight handling.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allowed := false

			if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, o := range allowedOrigins {
					if o == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-Id")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestIDMiddleware stamps every request with a UUID, echoed back in the
// X-Request-Id header and threaded through the request context so handlers
// and their logs can correlate a single call end to end.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		log := logger.GetLogger().WithPrefix(fmt.Sprintf("[%s]", requestID(r)))
		log.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(wrapped, r)
		log.Infof("%s %s -> %d", r.Method, r.URL.Path, wrapped.statusCode)
	})
}

func (s *Server) Start() error {
	handler := s.setupRoutes()
	addr := fmt.Sprintf(":%d", s.config.Port)

	s.log.Infof("soundprint server starting on %s", addr)
	s.log.Infof("  database:    %s", s.config.DBPath)
	s.log.Infof("  target rate: %d Hz", s.config.TargetRate)
	s.log.Infof("  CORS:        %v", s.config.AllowedOrigins)
	s.log.Infof("endpoints:")
	s.log.Infof("  GET    /health                 - health check")
	s.log.Infof("  GET    /api/health/metrics      - server metrics")
	s.log.Infof("  GET    /api/tracks              - list tracks")
	s.log.Infof("  POST   /api/tracks              - learn a track from an uploaded file")
	s.log.Infof("  POST   /api/tracks/youtube      - learn a track from a YouTube URL")
	s.log.Infof("  DELETE /api/tracks/{id}         - delete a track")
	s.log.Infof("  POST   /api/identify            - identify an uploaded clip")

	return http.ListenAndServe(addr, handler)
}
