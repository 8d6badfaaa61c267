package vector

import "errors"

var (
	// ErrInvalidInput is returned for empty queries, empty IDs and embedding
	// dimension mismatches.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable is returned when the embedding provider cannot
	// produce a vector.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")

	// ErrStoreFailure is returned when the document store cannot be read or
	// written.
	ErrStoreFailure = errors.New("document store failure")

	// ErrDependencyTimeout is returned when an external call exceeds its
	// deadline.
	ErrDependencyTimeout = errors.New("dependency timeout")

	// ErrDuplicateID is returned by stores configured to reject ID collisions.
	ErrDuplicateID = errors.New("duplicate document id")

	// ErrNotFound is returned when a document is not found in the store.
	ErrNotFound = errors.New("document not found")
)
