package retrieve

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docchat/docchat/internal/embed"
	"github.com/docchat/docchat/internal/index"
)

// noContextSentinel marks a bundle with no surviving chunks. It is a
// designed outcome, not an error: the generation side answers gracefully
// instead of hallucinating from an empty context.
const noContextSentinel = "NO_RELEVANT_CONTEXT"

// chunkSeparator visually divides chunks inside the assembled context.
const chunkSeparator = "\n\n-----\n\n"

// Source attributes one context chunk back to its document.
type Source struct {
	DocumentName string  `json:"document"`
	ChunkIndex   int     `json:"chunk_index"`
	Score        float64 `json:"score"`
	Preview      string  `json:"preview"`
}

// ContextBundle is the assembled context for one query.
type ContextBundle struct {
	Text    string
	Sources []Source
}

// Empty reports whether no chunk passed retrieval.
func (b ContextBundle) Empty() bool { return len(b.Sources) == 0 }

// Retriever turns a query into a bounded context string. It must embed with
// the exact model configuration used at ingestion time; the index's model
// version check is the only guard against a mismatch.
type Retriever struct {
	embedder  embed.Embedder
	store     index.Store
	threshold float64 // results scoring below are dropped; 0 disables
	maxChars  int     // overall context bound
}

// New creates a retriever.
func New(embedder embed.Embedder, store index.Store, threshold float64, maxChars int) *Retriever {
	if maxChars <= 0 {
		maxChars = 8000
	}
	return &Retriever{embedder: embedder, store: store, threshold: threshold, maxChars: maxChars}
}

// Retrieve embeds the query, fetches the topK nearest chunks and assembles
// them, descending by similarity, into one bounded context string. When the
// bound would be exceeded, lowest-ranked chunks are dropped first.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) (ContextBundle, error) {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return ContextBundle{}, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.store.Search(ctx, vec, topK)
	if err != nil {
		return ContextBundle{}, fmt.Errorf("search index: %w", err)
	}

	var blocks []string
	var sources []Source
	total := 0
	for _, res := range results {
		if r.threshold > 0 && res.Score < r.threshold {
			continue
		}
		block := fmt.Sprintf("[Source %d] %s (chunk %d)\n%s",
			len(sources)+1, res.Record.DocumentName, res.Record.ChunkIndex, res.Record.Text)
		cost := len(block)
		if len(blocks) > 0 {
			cost += len(chunkSeparator)
		}
		if total+cost > r.maxChars {
			break // everything after this ranks lower
		}
		total += cost
		blocks = append(blocks, block)
		sources = append(sources, Source{
			DocumentName: res.Record.DocumentName,
			ChunkIndex:   res.Record.ChunkIndex,
			Score:        res.Score,
			Preview:      preview(res.Record.Text, 200),
		})
	}

	if len(sources) == 0 {
		return ContextBundle{Text: noContextSentinel}, nil
	}
	return ContextBundle{Text: strings.Join(blocks, chunkSeparator), Sources: sources}, nil
}

// preview truncates to n characters on a rune boundary.
func preview(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
