package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/generate"
	"github.com/docchat/docchat/internal/pipeline"
	"github.com/docchat/docchat/internal/rag"
	"github.com/docchat/docchat/internal/retrieve"
)

// RAG is the service surface the HTTP layer depends on.
type RAG interface {
	Ingest(ctx context.Context, uploads []pipeline.Upload) pipeline.Report
	Chat(ctx context.Context, query string, topK int, history []generate.Turn) (rag.ChatResponse, error)
	ChatStream(ctx context.Context, query string, topK int, history []generate.Turn) (<-chan string, <-chan error, []retrieve.Source, error)
	Health(ctx context.Context) (rag.Health, error)
	Reset(ctx context.Context) error
}

// Server is the HTTP API server for docchat.
type Server struct {
	router chi.Router
	svc    RAG
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc RAG, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		svc: svc,
		log: log,
		cfg: cfg,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints. Auth is a no-op when no key is configured.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/chat", s.handleChat)
		r.Post("/api/chat/stream", s.handleChatStream)
		r.Post("/api/reset", s.handleReset)
	})

	s.router = r
}
