// Package vector provides the document record model, the similarity math and
// the storage driver interface used by ingestion and retrieval.
package vector

import (
	"context"
	"time"
)

// Document is a persisted unit: an identifier, the raw extracted text and its
// embedding.
type Document struct {
	// ID is the stable identifier derived from the ingested document name.
	ID string

	// Content is the raw extracted text. It is kept for answer generation and
	// never takes part in similarity computation.
	Content string

	// Embedding is the vector representation of Content. Every document in a
	// store has the same length.
	Embedding []float32

	// IngestedAt is when the ingestion service created the record.
	IngestedAt time.Time
}

// Driver is the document store. Implementations own the persisted collection.
type Driver interface {
	// Insert persists a document. The embedding length must match the store
	// dimension or ErrInvalidInput is returned. An existing ID is overwritten
	// or rejected with ErrDuplicateID depending on the store's ConflictPolicy.
	Insert(ctx context.Context, doc Document) error

	// List returns a snapshot of every stored document. Each call re-reads
	// the collection. Ordering is not guaranteed.
	List(ctx context.Context) ([]Document, error)

	// Get returns a single document or ErrNotFound.
	Get(ctx context.Context, id string) (*Document, error)

	// Delete removes a document. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error

	// Count returns the number of stored documents.
	Count(ctx context.Context) (int, error)

	// Close releases any resources held by the driver.
	Close() error
}
