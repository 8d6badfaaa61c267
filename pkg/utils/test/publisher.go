package testutils

import (
	"context"
	"sync"

	"github.com/papercomputeco/docsearch/pkg/eventstream"
)

// MockPublisher records published events.
type MockPublisher struct {
	Err error

	mu     sync.Mutex
	events []*eventstream.DocumentIngestedEvent
}

func (m *MockPublisher) PublishIngested(_ context.Context, event *eventstream.DocumentIngestedEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of the published events.
func (m *MockPublisher) Events() []*eventstream.DocumentIngestedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*eventstream.DocumentIngestedEvent(nil), m.events...)
}

func (m *MockPublisher) Close() error {
	return nil
}
