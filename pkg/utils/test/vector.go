package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docsearch/pkg/vector"
)

// MockVectorDriver is a test vector driver that keeps documents in insertion
// order and can be told to fail.
type MockVectorDriver struct {
	InsertErr error
	ListErr   error

	mu        sync.Mutex
	documents []vector.Document
	inserts   int
}

func NewMockVectorDriver(docs ...vector.Document) *MockVectorDriver {
	return &MockVectorDriver{documents: append([]vector.Document(nil), docs...)}
}

func (m *MockVectorDriver) Insert(_ context.Context, doc vector.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inserts++
	if m.InsertErr != nil {
		return m.InsertErr
	}
	for i := range m.documents {
		if m.documents[i].ID == doc.ID {
			m.documents[i] = doc
			return nil
		}
	}
	m.documents = append(m.documents, doc)
	return nil
}

func (m *MockVectorDriver) List(_ context.Context) ([]vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	return append([]vector.Document(nil), m.documents...), nil
}

func (m *MockVectorDriver) Get(_ context.Context, id string) (*vector.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.documents {
		if d.ID == id {
			return &d, nil
		}
	}
	return nil, vector.ErrNotFound
}

func (m *MockVectorDriver) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, d := range m.documents {
		if d.ID == id {
			m.documents = append(m.documents[:i], m.documents[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockVectorDriver) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.documents), nil
}

// Inserts returns how many times Insert was called, including failed calls.
func (m *MockVectorDriver) Inserts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inserts
}

func (m *MockVectorDriver) Close() error {
	return nil
}
