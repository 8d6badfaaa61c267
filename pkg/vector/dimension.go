package vector

import (
	"fmt"
	"strings"
	"sync"
)

// Dimension enforces that every embedding written to a store has the same
// length. A zero value starts unset and is established by the first Check.
type Dimension struct {
	mu sync.Mutex
	n  int
}

// NewDimension returns a guard fixed at n. n == 0 leaves it unset.
func NewDimension(n int) *Dimension {
	return &Dimension{n: n}
}

// Size returns the established dimension, or 0 when unset.
func (d *Dimension) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.n
}

// Check validates an embedding length, establishing the dimension if unset.
func (d *Dimension) Check(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty embedding", ErrInvalidInput)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.n == 0 {
		d.n = n
		return nil
	}
	if d.n != n {
		return fmt.Errorf("%w: embedding has %d dimensions, store expects %d", ErrInvalidInput, n, d.n)
	}
	return nil
}

// ReconcileDimension picks the dimension for a store that already holds
// embeddings of length stored (0 when empty). A configured value must agree
// with the stored one; 0 means not configured.
func ReconcileDimension(configured, stored int) (int, error) {
	switch {
	case stored == 0:
		return configured, nil
	case configured == 0, configured == stored:
		return stored, nil
	default:
		return 0, fmt.Errorf("%w: store holds %d-dimension embeddings, configured %d", ErrInvalidInput, stored, configured)
	}
}

// ValidateDocument checks the fields every driver requires before writing.
func ValidateDocument(doc Document, dim *Dimension) error {
	if strings.TrimSpace(doc.ID) == "" {
		return fmt.Errorf("%w: document id is required", ErrInvalidInput)
	}
	return dim.Check(len(doc.Embedding))
}

// ConflictPolicy decides what Insert does with an ID that is already stored.
type ConflictPolicy string

const (
	// ConflictOverwrite replaces the stored document. Earlier content is lost.
	ConflictOverwrite ConflictPolicy = "overwrite"

	// ConflictReject fails the insert with ErrDuplicateID.
	ConflictReject ConflictPolicy = "reject"
)

// ParseConflictPolicy maps a config value to a ConflictPolicy. The empty
// string is overwrite.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", ConflictOverwrite:
		return ConflictOverwrite, nil
	case ConflictReject:
		return ConflictReject, nil
	default:
		return "", fmt.Errorf("%w: unknown conflict policy %q (expected overwrite or reject)", ErrInvalidInput, s)
	}
}
