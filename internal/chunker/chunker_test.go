package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docchat/docchat/internal/document"
)

func TestSplit_EmptyTextYieldsNoChunks(t *testing.T) {
	if got := Split("", DefaultConfig()); len(got) != 0 {
		t.Fatalf("expected 0 chunks for empty text, got %d", len(got))
	}
	if got := Split("   \n\n  \t ", DefaultConfig()); len(got) != 0 {
		t.Fatalf("expected whitespace-only text to be dropped, got %d chunks", len(got))
	}
}

func TestSplit_ShortTextYieldsOneChunk(t *testing.T) {
	text := "a single short paragraph"
	got := Split(text, Config{ChunkSize: 1000, Overlap: 200})
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != text {
		t.Errorf("expected chunk to equal input, got %q", got[0])
	}
}

func TestSplit_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 120)
	cfg := Config{ChunkSize: 500, Overlap: 100}
	a := Split(text, cfg)
	b := Split(text, cfg)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplit_OverlapInvariant(t *testing.T) {
	text := strings.Repeat("word and more words in a line ", 200)
	cfg := Config{ChunkSize: 400, Overlap: 80}
	chunks := Split(text, cfg)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i := 0; i < len(chunks)-1; i++ {
		if len(chunks[i]) < cfg.Overlap || len(chunks[i+1]) < cfg.Overlap {
			continue // the final chunk may be shorter than the overlap span
		}
		tail := chunks[i][len(chunks[i])-cfg.Overlap:]
		head := chunks[i+1][:cfg.Overlap]
		if tail != head {
			t.Errorf("chunks %d/%d do not share the overlap span:\n tail %q\n head %q", i, i+1, tail, head)
		}
	}
}

// With no separators in the input, cut points fall exactly on the hard
// window boundary: starts at 0, 800, 1600 for S=1000, O=200.
func TestSplit_HardBoundaryArithmetic(t *testing.T) {
	text := strings.Repeat("x", 2400)
	chunks := Split(text, Config{ChunkSize: 1000, Overlap: 200})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{1000, 1000, 800}
	for i, want := range wantLens {
		if len(chunks[i]) != want {
			t.Errorf("chunk %d: expected length %d, got %d", i, want, len(chunks[i]))
		}
	}
	if chunks[0][800:] != chunks[1][:200] {
		t.Error("chunk 1 does not begin with the last 200 characters of chunk 0")
	}
}

// Sizes count runes, not bytes: 900 three-byte characters fit in one
// 1000-character chunk even though they span 2700 bytes.
func TestSplit_SizesCountRunes(t *testing.T) {
	text := strings.Repeat("文", 900)
	chunks := Split(text, Config{ChunkSize: 1000, Overlap: 200})
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for 900 characters, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Error("expected the chunk to equal the input")
	}
}

func TestSplit_MultiByteHardBoundary(t *testing.T) {
	text := strings.Repeat("文", 2400)
	chunks := Split(text, Config{ChunkSize: 1000, Overlap: 200})
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantLens := []int{1000, 1000, 800}
	for i, want := range wantLens {
		if !utf8.ValidString(chunks[i]) {
			t.Errorf("chunk %d is not valid UTF-8", i)
		}
		if got := utf8.RuneCountInString(chunks[i]); got != want {
			t.Errorf("chunk %d: expected %d characters, got %d", i, want, got)
		}
	}
	a, b := []rune(chunks[0]), []rune(chunks[1])
	if string(a[800:]) != string(b[:200]) {
		t.Error("chunk 1 does not begin with the last 200 characters of chunk 0")
	}
}

// The overlap backtrack must also land on character boundaries, even when
// the cut itself falls on a separator.
func TestSplit_MultiByteParagraphsStayValid(t *testing.T) {
	para := strings.Repeat("あ", 180)
	text := para + "\n\n" + para + "\n\n" + para + "\n\n" + para
	chunks := Split(text, Config{ChunkSize: 200, Overlap: 150})
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
		}
		if got := utf8.RuneCountInString(c); got > 200 {
			t.Errorf("chunk %d exceeds the configured maximum: %d characters", i, got)
		}
	}
}

func TestSplit_PrefersParagraphBoundary(t *testing.T) {
	para := strings.Repeat("sentence one here. ", 20) // ~380 chars
	text := para + "\n\n" + para + "\n\n" + para
	chunks := Split(text, Config{ChunkSize: 500, Overlap: 50})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	// The first cut should land on the paragraph break, not mid-sentence.
	if !strings.HasSuffix(chunks[0], "\n\n") {
		t.Errorf("expected first chunk to end at a paragraph boundary, got tail %q", chunks[0][len(chunks[0])-20:])
	}
}

func TestSplit_NoEmptyChunks(t *testing.T) {
	text := strings.Repeat("word ", 500) + "\n\n\n\n" + strings.Repeat("tail ", 100)
	chunks := Split(text, Config{ChunkSize: 300, Overlap: 60})
	for i, c := range chunks {
		if strings.TrimSpace(c) == "" {
			t.Errorf("chunk %d is empty or whitespace-only", i)
		}
		if len(c) > 300 {
			t.Errorf("chunk %d exceeds the configured maximum: %d chars", i, len(c))
		}
	}
}

func TestChunkDocument_IndexesAreStable(t *testing.T) {
	doc := document.Document{
		ID:   "doc-1",
		Name: "report.txt",
		Text: strings.Repeat("alpha beta gamma delta. ", 100),
	}
	chunks := ChunkDocument(doc, Config{ChunkSize: 200, Overlap: 40})
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if c.Index != i {
			t.Errorf("chunk %d: expected index %d, got %d", i, i, c.Index)
		}
		if c.DocumentID != "doc-1" || c.DocumentName != "report.txt" {
			t.Errorf("chunk %d carries wrong document identity: %+v", i, c)
		}
	}
}
