package embed

import (
	"context"
	"errors"
)

// ErrUnavailable indicates the embedding model cannot be reached. It is
// fatal to the current operation: falling back to a different model would
// silently corrupt similarity comparisons against the existing index.
var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder maps text to fixed-dimensionality vectors. One fixed model
// configuration must be used for the lifetime of an index: stored chunks
// and incoming queries have to live in the same vector space, and nothing
// downstream can detect a mismatch beyond the index's model version check.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model identifies the fixed model configuration.
	Model() string
	// Dimension is the vector length, 0 until the first successful call.
	Dimension() int
}
