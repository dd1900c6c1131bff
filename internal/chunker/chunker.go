package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/docchat/docchat/internal/document"
)

// Config controls chunking behavior.
type Config struct {
	ChunkSize int // target chunk size in characters
	Overlap   int // characters shared between consecutive chunks
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize: 1000,
		Overlap:   200,
	}
}

// separators are tried in priority order when a window has to be cut:
// paragraph boundary, then line boundary, then whitespace. A window that
// contains none of them is cut at the raw character position.
var separators = []string{"\n\n", "\n", " "}

// Split cuts text into overlapping segments of at most cfg.ChunkSize
// characters. Sizes and offsets count runes, not bytes, so multi-byte text
// is never cut mid-character. The cut point of each full window prefers the
// rightmost separator inside it; the next window starts cfg.Overlap
// characters before that cut, so consecutive full-length chunks share
// exactly cfg.Overlap characters. Empty input yields no chunks, input
// shorter than the chunk size yields one, and whitespace-only segments are
// dropped.
func Split(text string, cfg Config) []string {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = cfg.ChunkSize / 5
	}

	runes := []rune(text)

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + cfg.ChunkSize
		if end >= len(runes) {
			appendChunk(&chunks, string(runes[start:]))
			break
		}

		cut := cutPoint(runes, start, end)
		appendChunk(&chunks, string(runes[start:cut]))

		next := cut - cfg.Overlap
		if next <= start {
			// Window too small to carry overlap without stalling.
			next = cut
		}
		start = next
	}
	return chunks
}

// ChunkDocument splits a document's text and labels each chunk with its
// position within the document.
func ChunkDocument(doc document.Document, cfg Config) []document.Chunk {
	parts := Split(doc.Text, cfg)
	chunks := make([]document.Chunk, 0, len(parts))
	for i, part := range parts {
		chunks = append(chunks, document.Chunk{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Index:        i,
			Text:         part,
		})
	}
	return chunks
}

// cutPoint returns the end offset in runes for the chunk starting at start,
// given the hard window limit end (end < len(runes)). Separators stay with
// the chunk they terminate.
func cutPoint(runes []rune, start, end int) int {
	window := string(runes[start:end])
	for _, sep := range separators {
		// Separators are ASCII, so their byte and rune lengths agree; the
		// byte offset of the match still has to be mapped back to runes.
		if i := strings.LastIndex(window, sep); i > 0 {
			return start + utf8.RuneCountInString(window[:i]) + len(sep)
		}
	}
	return end
}

func appendChunk(chunks *[]string, s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	*chunks = append(*chunks, s)
}
