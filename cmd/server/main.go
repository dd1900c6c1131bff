package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/docchat/docchat/internal/api"
	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/config"
	"github.com/docchat/docchat/internal/embed"
	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/generate"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/pipeline"
	"github.com/docchat/docchat/internal/rag"
	"github.com/docchat/docchat/internal/retrieve"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// The index is versioned by embedding model; a mismatch with what is on
	// disk fails here rather than degrading search quality silently.
	store, err := index.NewSQLiteStore(cfg.DataDir, cfg.EmbeddingModel)
	if err != nil {
		log.Error("opening vector index", "error", err, "data_dir", cfg.DataDir)
		os.Exit(1)
	}
	defer store.Close()

	embedder := embed.NewClient(embed.Config{
		BaseURL: cfg.EmbeddingsBaseURL,
		APIKey:  cfg.EmbeddingsAPIKey,
		Model:   cfg.EmbeddingModel,
		Timeout: cfg.EmbedTimeout,
	})
	llm := generate.NewClient(generate.Config{
		BaseURL:     cfg.LLMBaseURL,
		APIKey:      cfg.LLMAPIKey,
		Model:       cfg.LLMModel,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxOutputTokens,
		Timeout:     cfg.LLMTimeout,
	})

	chunkCfg := chunker.Config{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap}
	extractOpts := extract.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext}

	p := pipeline.New(embedder, store, chunkCfg, extractOpts, cfg.IngestParallelism, log)
	r := retrieve.New(embedder, store, cfg.SimilarityThreshold, cfg.MaxContextChars)
	o := generate.NewOrchestrator(llm)
	svc := rag.New(p, r, o, store, cfg.DefaultTopK, log)

	srv := api.NewServer(svc, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * cfg.LLMTimeout, // streams must outlive one generation
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		llm.Close()
	}()

	log.Info("starting docchat",
		"port", cfg.Port,
		"embedding_model", cfg.EmbeddingModel,
		"llm_model", cfg.LLMModel,
		"data_dir", cfg.DataDir,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
