// Package eventstream publishes ingestion events to an event stream backend.
package eventstream

import "context"

// Publisher publishes document events to an event stream backend.
type Publisher interface {
	PublishIngested(ctx context.Context, event *DocumentIngestedEvent) error
	Close() error
}
