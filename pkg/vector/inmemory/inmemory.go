// Package inmemory provides a process-local document store.
package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

// Driver implements vector.Driver using an in-memory map.
type Driver struct {
	// mu guards docs and order
	mu sync.RWMutex

	// docs maps document ID to the stored record
	docs map[string]vector.Document

	// order is the insertion order of IDs, used to give List a stable scan
	// order
	order []string

	dim    *vector.Dimension
	policy vector.ConflictPolicy
}

// Config holds configuration for the in-memory driver.
type Config struct {
	// Dimensions is the embedding length. 0 lets the first insert decide.
	Dimensions uint

	// Conflict decides what happens when an ID is inserted twice.
	Conflict vector.ConflictPolicy
}

// NewDriver creates a new in-memory driver.
func NewDriver(c Config) *Driver {
	policy := c.Conflict
	if policy == "" {
		policy = vector.ConflictOverwrite
	}
	return &Driver{
		docs:   make(map[string]vector.Document),
		dim:    vector.NewDimension(int(c.Dimensions)),
		policy: policy,
	}
}

// Insert stores a copy of the document.
func (d *Driver) Insert(_ context.Context, doc vector.Document) error {
	if err := vector.ValidateDocument(doc, d.dim); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	_, exists := d.docs[doc.ID]
	if exists && d.policy == vector.ConflictReject {
		return fmt.Errorf("%w: %s", vector.ErrDuplicateID, doc.ID)
	}

	doc.Embedding = slices.Clone(doc.Embedding)
	d.docs[doc.ID] = doc
	if !exists {
		d.order = append(d.order, doc.ID)
	}
	return nil
}

// List returns a copy of every document in insertion order.
func (d *Driver) List(_ context.Context) ([]vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	docs := make([]vector.Document, 0, len(d.order))
	for _, id := range d.order {
		doc := d.docs[id]
		doc.Embedding = slices.Clone(doc.Embedding)
		docs = append(docs, doc)
	}
	return docs, nil
}

// Get retrieves a document by ID.
func (d *Driver) Get(_ context.Context, id string) (*vector.Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc, ok := d.docs[id]
	if !ok {
		return nil, vector.ErrNotFound
	}
	doc.Embedding = slices.Clone(doc.Embedding)
	return &doc, nil
}

// Delete removes a document by ID.
func (d *Driver) Delete(_ context.Context, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.docs[id]; !ok {
		return nil
	}
	delete(d.docs, id)
	d.order = slices.DeleteFunc(d.order, func(o string) bool { return o == id })
	return nil
}

// Count returns the number of stored documents.
func (d *Driver) Count(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs), nil
}

// Close is a no-op.
func (d *Driver) Close() error {
	return nil
}
