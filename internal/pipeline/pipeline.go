package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/document"
	"github.com/docchat/docchat/internal/embed"
	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/index"
)

// Status tracks a document through the ingestion state machine. Terminal
// states are StatusIndexed and StatusFailed.
type Status string

const (
	StatusReceived  Status = "received"
	StatusExtracted Status = "extracted"
	StatusChunked   Status = "chunked"
	StatusEmbedded  Status = "embedded"
	StatusIndexed   Status = "indexed"
	StatusFailed    Status = "failed"
)

// Upload is one (filename, raw bytes) pair from the upload boundary.
type Upload struct {
	Filename string
	Data     []byte
}

// DocumentResult is the terminal outcome for a single document.
type DocumentResult struct {
	Filename   string `json:"filename"`
	DocumentID string `json:"document_id,omitempty"`
	Status     Status `json:"status"`
	Chunks     int    `json:"chunks"`
	Error      string `json:"error,omitempty"`
}

// Report summarizes a batch. Partial success is normal: one corrupt file
// never aborts its siblings.
type Report struct {
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Documents []DocumentResult `json:"documents"`
}

// Pipeline orchestrates raw document -> extracted text -> chunks ->
// embeddings -> index insertion.
type Pipeline struct {
	embedder    embed.Embedder
	store       index.Store
	chunkCfg    chunker.Config
	extractOpts extract.Options
	parallelism int
	log         *slog.Logger
}

// New creates an ingestion pipeline.
func New(embedder embed.Embedder, store index.Store, chunkCfg chunker.Config, extractOpts extract.Options, parallelism int, log *slog.Logger) *Pipeline {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &Pipeline{
		embedder:    embedder,
		store:       store,
		chunkCfg:    chunkCfg,
		extractOpts: extractOpts,
		parallelism: parallelism,
		log:         log,
	}
}

// Ingest processes a batch of uploads with bounded parallelism. Documents
// are independent until the final index write; each failure is recorded
// against its own document only. Re-ingesting the same filename appends new
// chunks; callers wanting replacement semantics reset the index first.
func (p *Pipeline) Ingest(ctx context.Context, uploads []Upload) Report {
	results := make([]DocumentResult, len(uploads))

	sem := make(chan struct{}, p.parallelism)
	var wg sync.WaitGroup
	for i, up := range uploads {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, up Upload) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = p.ingestOne(ctx, up)
		}(i, up)
	}
	wg.Wait()

	report := Report{Documents: results}
	for _, r := range results {
		if r.Status == StatusIndexed {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}
	return report
}

func (p *Pipeline) ingestOne(ctx context.Context, up Upload) DocumentResult {
	res := DocumentResult{Filename: up.Filename, Status: StatusReceived}
	log := p.log.With("filename", up.Filename)

	ex, err := extract.ForFile(up.Filename, p.extractOpts)
	if err != nil {
		log.Error("unsupported format", "error", err)
		return fail(res, err)
	}
	text, pages, err := ex.Extract(bytes.NewReader(up.Data), up.Filename)
	if err != nil {
		log.Error("extraction failed", "error", err)
		return fail(res, fmt.Errorf("extract: %w", err))
	}
	if strings.TrimSpace(text) == "" {
		log.Warn("no extractable content")
		return fail(res, fmt.Errorf("no extractable content"))
	}
	res.Status = StatusExtracted

	doc := document.Document{
		ID:     uuid.NewString(),
		Name:   up.Filename,
		Format: extract.Format(up.Filename),
		Text:   text,
		Pages:  pages,
	}
	res.DocumentID = doc.ID

	chunks := chunker.ChunkDocument(doc, p.chunkCfg)
	if len(chunks) == 0 {
		return fail(res, fmt.Errorf("no chunks produced"))
	}
	res.Status = StatusChunked
	res.Chunks = len(chunks)
	log.Info("chunked document", "chunks", len(chunks), "pages", pages)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		log.Error("embedding failed", "error", err)
		return fail(res, fmt.Errorf("embed: %w", err))
	}
	res.Status = StatusEmbedded

	records := make([]index.Record, len(chunks))
	for i, c := range chunks {
		records[i] = index.Record{
			DocumentID:   c.DocumentID,
			DocumentName: c.DocumentName,
			ChunkIndex:   c.Index,
			Text:         c.Text,
			Embedding:    vectors[i],
		}
	}
	if err := p.store.Insert(ctx, records); err != nil {
		log.Error("index insert failed", "error", err)
		return fail(res, fmt.Errorf("index: %w", err))
	}

	res.Status = StatusIndexed
	log.Info("document indexed", "document_id", doc.ID, "chunks", len(chunks))
	return res
}

func fail(res DocumentResult, err error) DocumentResult {
	res.Status = StatusFailed
	res.Error = err.Error()
	return res
}
