// Package embeddings defines the text embedding client used by ingestion and
// retrieval.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into exactly one vector embedding. Failures wrap
	// vector.ErrEmbeddingUnavailable and no partial vector is returned.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
