package testutils

import (
	"context"
	"fmt"

	"github.com/papercomputeco/docsearch/pkg/llm"
)

// MockGenerator returns Answer, or fails with ErrGeneration when Err is set.
type MockGenerator struct {
	Answer string
	Err    error

	LastContent string
	LastQuery   string
}

func (m *MockGenerator) Generate(_ context.Context, content, query string) (string, error) {
	m.LastContent = content
	m.LastQuery = query
	if m.Err != nil {
		return "", fmt.Errorf("%w: %w", llm.ErrGeneration, m.Err)
	}
	return m.Answer, nil
}
