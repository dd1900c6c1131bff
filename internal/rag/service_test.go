package rag

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/docchat/docchat/internal/chunker"
	"github.com/docchat/docchat/internal/extract"
	"github.com/docchat/docchat/internal/generate"
	"github.com/docchat/docchat/internal/index"
	"github.com/docchat/docchat/internal/pipeline"
	"github.com/docchat/docchat/internal/retrieve"
)

// keywordEmbedder puts cat-flavored text on one axis and everything else on
// the other, so relevance is controllable from test fixtures.
type keywordEmbedder struct{}

func (keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.Contains(strings.ToLower(text), "cat") {
		return []float32{1, 0}, nil
	}
	return []float32{0, 1}, nil
}

func (e keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (keywordEmbedder) Model() string  { return "keyword" }
func (keywordEmbedder) Dimension() int { return 2 }

type countingLLM struct {
	calls int
}

func (c *countingLLM) Complete(ctx context.Context, messages []generate.Turn) (string, error) {
	c.calls++
	return "a grounded answer", nil
}

func (c *countingLLM) Stream(ctx context.Context, messages []generate.Turn) (<-chan string, <-chan error) {
	c.calls++
	fragments := make(chan string, 2)
	errc := make(chan error)
	fragments <- "a grounded"
	fragments <- " answer"
	close(fragments)
	close(errc)
	return fragments, errc
}

func newTestService(t *testing.T) (*Service, *countingLLM) {
	t.Helper()
	embedder := keywordEmbedder{}
	store, err := index.NewSQLiteStore(t.TempDir(), embedder.Model())
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := pipeline.New(embedder, store, chunker.DefaultConfig(), extract.Options{}, 2, log)
	r := retrieve.New(embedder, store, 0, 8000)
	llm := &countingLLM{}
	o := generate.NewOrchestrator(llm)
	return New(p, r, o, store, 3, log), llm
}

func TestService_IngestThenChat(t *testing.T) {
	svc, llm := newTestService(t)
	ctx := context.Background()

	report := svc.Ingest(ctx, []pipeline.Upload{
		{Filename: "cats.txt", Data: []byte("cats purr when they are happy")},
		{Filename: "dogs.txt", Data: []byte("dogs bark at the mail carrier")},
	})
	if report.Succeeded != 2 || report.Failed != 0 {
		t.Fatalf("unexpected ingest report: %+v", report)
	}

	resp, err := svc.Chat(ctx, "why do cats purr?", 1, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Answer != "a grounded answer" {
		t.Errorf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 1 || resp.Sources[0].DocumentName != "cats.txt" {
		t.Errorf("expected cats.txt as the single source, got %+v", resp.Sources)
	}
	if llm.calls != 1 {
		t.Errorf("expected exactly one model call, got %d", llm.calls)
	}
}

func TestService_ChatOnEmptyIndex(t *testing.T) {
	svc, llm := newTestService(t)

	resp, err := svc.Chat(context.Background(), "anything at all", 0, nil)
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if resp.Answer != generate.InsufficientAnswer {
		t.Errorf("expected the insufficient-information answer, got %q", resp.Answer)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("expected no sources, got %+v", resp.Sources)
	}
	if llm.calls != 0 {
		t.Error("model must not be called without context")
	}
}

func TestService_ChatStream(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	svc.Ingest(ctx, []pipeline.Upload{
		{Filename: "cats.txt", Data: []byte("cats purr when they are happy")},
	})

	fragments, errc, sources, err := svc.ChatStream(ctx, "cats?", 3, nil)
	if err != nil {
		t.Fatalf("chat stream: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("expected one source, got %d", len(sources))
	}
	var b strings.Builder
	for f := range fragments {
		b.WriteString(f)
	}
	if err := <-errc; err != nil {
		t.Fatalf("unexpected terminal error: %v", err)
	}
	if b.String() != "a grounded answer" {
		t.Errorf("unexpected streamed answer %q", b.String())
	}
}

func TestService_HealthAndReset(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	h, err := svc.Health(ctx)
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if h.Initialized || h.DocumentCount != 0 {
		t.Errorf("fresh service should be uninitialized, got %+v", h)
	}

	svc.Ingest(ctx, []pipeline.Upload{
		{Filename: "cats.txt", Data: []byte("cats purr when they are happy")},
		{Filename: "dogs.txt", Data: []byte("dogs bark at the mail carrier")},
	})
	h, err = svc.Health(ctx)
	if err != nil {
		t.Fatalf("health after ingest: %v", err)
	}
	if !h.Initialized || h.DocumentCount != 2 || h.ChunkCount < 2 {
		t.Errorf("unexpected health after ingest: %+v", h)
	}

	if err := svc.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	h, _ = svc.Health(ctx)
	if h.Initialized || h.ChunkCount != 0 {
		t.Errorf("expected an empty index after reset, got %+v", h)
	}
}
