package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docchat/docchat/internal/generate"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/pipeline"
	"github.com/docchat/docchat/internal/retrieve"
)

// Service ties ingestion, retrieval and generation together behind one
// surface. It holds no conversation state; history travels with each call.
type Service struct {
	pipeline     *pipeline.Pipeline
	retriever    *retrieve.Retriever
	orchestrator *generate.Orchestrator
	store        index.Store
	defaultTopK  int
	log          *slog.Logger
}

// New creates the service.
func New(p *pipeline.Pipeline, r *retrieve.Retriever, o *generate.Orchestrator, store index.Store, defaultTopK int, log *slog.Logger) *Service {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Service{
		pipeline:     p,
		retriever:    r,
		orchestrator: o,
		store:        store,
		defaultTopK:  defaultTopK,
		log:          log,
	}
}

// ChatResponse is the complete answer for one query.
type ChatResponse struct {
	Answer  string            `json:"answer"`
	Sources []retrieve.Source `json:"sources"`
}

// Health reports service liveness and index state. The index counts as
// initialized once it holds at least one record; the flag is derived, never
// stored, so it survives restarts for free.
type Health struct {
	Status        string `json:"status"`
	Initialized   bool   `json:"initialized"`
	DocumentCount int    `json:"document_count"`
	ChunkCount    int    `json:"chunk_count"`
}

// Ingest runs the upload batch through the ingestion pipeline.
func (s *Service) Ingest(ctx context.Context, uploads []pipeline.Upload) pipeline.Report {
	report := s.pipeline.Ingest(ctx, uploads)
	s.log.Info("ingest batch finished", "succeeded", report.Succeeded, "failed", report.Failed)
	return report
}

// Chat answers a query in one unit, with the sources that grounded it.
// An empty sources list accompanies the insufficient-information answer.
func (s *Service) Chat(ctx context.Context, query string, topK int, history []generate.Turn) (ChatResponse, error) {
	bundle, err := s.retrieve(ctx, query, topK)
	if err != nil {
		return ChatResponse{}, err
	}
	answer, err := s.orchestrator.Answer(ctx, query, bundle, history)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("generate answer: %w", err)
	}
	return ChatResponse{Answer: answer, Sources: bundle.Sources}, nil
}

// ChatStream answers a query as a fragment stream. Retrieval happens
// up front, so retrieval failures surface as a plain error before any
// fragment is produced; generation failures arrive on the error channel.
func (s *Service) ChatStream(ctx context.Context, query string, topK int, history []generate.Turn) (<-chan string, <-chan error, []retrieve.Source, error) {
	bundle, err := s.retrieve(ctx, query, topK)
	if err != nil {
		return nil, nil, nil, err
	}
	fragments, errc := s.orchestrator.AnswerStream(ctx, query, bundle, history)
	return fragments, errc, bundle.Sources, nil
}

func (s *Service) retrieve(ctx context.Context, query string, topK int) (retrieve.ContextBundle, error) {
	if topK <= 0 {
		topK = s.defaultTopK
	}
	bundle, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return retrieve.ContextBundle{}, err
	}
	if bundle.Empty() {
		s.log.Info("no relevant context for query", "top_k", topK)
	}
	return bundle, nil
}

// Health reports whether the index holds any content yet.
func (s *Service) Health(ctx context.Context) (Health, error) {
	chunks, err := s.store.Count(ctx)
	if err != nil {
		return Health{}, fmt.Errorf("count index: %w", err)
	}
	docs, err := s.store.Documents(ctx)
	if err != nil {
		return Health{}, fmt.Errorf("count documents: %w", err)
	}
	return Health{Status: "ok", Initialized: chunks > 0, DocumentCount: docs, ChunkCount: chunks}, nil
}

// Reset irreversibly clears the index.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	s.log.Warn("index reset")
	return nil
}
