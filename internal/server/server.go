// Package server exposes splitting, merging and translation of LaTeX
// documents over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/valpere/texsplit/internal/chunker"
	"github.com/valpere/texsplit/internal/pipeline"
	"github.com/valpere/texsplit/internal/translator"
)

// DetectFunc guesses the language of a LaTeX fragment.
type DetectFunc func(text string) (string, bool)

type Options struct {
	// APIKey enables bearer authentication of the /api routes when set.
	APIKey       string
	MaxBodyBytes int64
	ChunkSize    int
	// Pipeline is the template for translation runs; MaxChars is
	// overridden per request when chunk_size is given.
	Pipeline pipeline.Options
	// Session is the template for translation sessions; languages come
	// from the request.
	Session translator.SessionOptions
	Detect  DetectFunc
}

// Server is the HTTP API server for texsplit.
type Server struct {
	router     chi.Router
	translator pipeline.Translator
	opts       Options
	log        *slog.Logger
}

// New creates and configures the HTTP server. tr may be nil, in which case
// /api/translate is not served.
func New(tr pipeline.Translator, opts Options, log *slog.Logger) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = chunker.DefaultMaxChars
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		translator: tr,
		opts:       opts,
		log:        log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.opts.APIKey != "" {
			r.Use(AuthMiddleware(s.opts.APIKey))
		}
		r.Use(limitBody(s.opts.MaxBodyBytes))

		r.Post("/api/split", s.handleSplit)
		r.Post("/api/merge", s.handleMerge)
		if s.translator != nil {
			r.Post("/api/translate", s.handleTranslate)
		}
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
