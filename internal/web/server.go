// Package web is the HTTP boundary in front of the ingestion pipeline. It
// validates request shapes, maps pipeline errors to status codes, and leaves
// every other decision to the ingest package.
package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/datakeep/ingest-core/internal/ingest"
)

// Server routes file requests to the ingestion service.
type Server struct {
	files   *ingest.FileService
	limiter *rateLimiter
}

// Options tunes the request middleware.
type Options struct {
	// RatePerSecond and RateBurst bound per-client request rates.
	// Zero disables limiting.
	RatePerSecond float64
	RateBurst     int
}

func NewServer(files *ingest.FileService, opts Options) *Server {
	s := &Server{files: files}
	if opts.RatePerSecond > 0 {
		s.limiter = newRateLimiter(opts.RatePerSecond, opts.RateBurst)
	}
	return s
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.limiter != nil {
		r.Use(s.limiter.middleware)
	}

	r.Route("/api/v1/files", func(r chi.Router) {
		r.Post("/preview", s.handlePreview)
		r.Post("/import", s.handleImport)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return r
}
