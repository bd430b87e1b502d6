package interfaces

import (
	"context"

	"legalmind/internal/rag/schema"
)

// Splitter splits extracted text into ordered, overlapping fragments.
type Splitter interface {
	Split(text string, boundMetadata map[string]interface{}) []schema.Fragment
}

// VectorIndex stores (vector, text, metadata) triples and supports
// approximate nearest-neighbor search with metadata filters. The backing
// index persists across restarts.
type VectorIndex interface {
	Add(ctx context.Context, entries []schema.Entry) error
	Query(ctx context.Context, vector []float32, k int, filter *schema.Filter) ([]schema.Match, error)
	// Get retrieves matching entries without ranking.
	Get(ctx context.Context, filter *schema.Filter) ([]schema.Match, error)
	// Delete removes all entries matching filter.
	Delete(ctx context.Context, filter *schema.Filter) error
}

// EmbeddingModel maps texts to fixed-dimension vectors.
type EmbeddingModel interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// LLM generates text from a prompt.
type LLM interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
