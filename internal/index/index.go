package index

import (
	"context"
	"errors"
	"math"
)

var (
	// ErrUnavailable indicates the backing store is unreachable or corrupt.
	ErrUnavailable = errors.New("vector index unavailable")
	// ErrInvalidTopK is returned for non-positive top-k requests.
	ErrInvalidTopK = errors.New("top_k must be positive")
	// ErrModelMismatch is returned when the index on disk was built with a
	// different embedding model configuration than the one now in use.
	// Searching across model spaces would silently degrade relevance, so
	// this fails fast instead.
	ErrModelMismatch = errors.New("index was built with a different embedding model")
)

// Record is one indexed chunk. Once inserted it is owned by the store and
// lives until Reset.
type Record struct {
	ID           string // unique, index-scoped; assigned on insert if empty
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Text         string
	Embedding    []float32
}

// Result is one retrieval candidate. Ephemeral, constructed per query.
type Result struct {
	Record Record
	Score  float64 // cosine similarity
}

// Store persists (vector, text, metadata) records and answers
// nearest-neighbor queries by cosine similarity.
type Store interface {
	// Insert appends records atomically. No content dedup happens here.
	Insert(ctx context.Context, records []Record) error
	// Search returns up to topK records ranked by cosine similarity,
	// descending, ties broken by insertion order (earlier wins).
	Search(ctx context.Context, vector []float32, topK int) ([]Result, error)
	// Count reports stored records; Documents reports distinct source
	// documents among them.
	Count(ctx context.Context) (int, error)
	Documents(ctx context.Context) (int, error)
	// Reset clears all records irreversibly.
	Reset(ctx context.Context) error
	Close() error
}

// CosineSimilarity returns the cosine of the angle between a and b,
// 0 when either vector has zero norm or lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
