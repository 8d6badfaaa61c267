package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDocumentIngested is emitted after a document is persisted.
	EventTypeDocumentIngested = "docsearch.document.ingested"
)

// DocumentIngestedEvent is a transport-neutral event payload for a persisted
// document. It carries metadata only; content stays in the store.
type DocumentIngestedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	Document      DocumentMeta `json:"document"`
}

// EventSource identifies which surface ingested the document.
type EventSource struct {
	// Origin is "api", "mcp" or "watcher".
	Origin string `json:"origin"`

	// Path is the watched file path, when there is one.
	Path string `json:"path,omitempty"`
}

// DocumentMeta describes the stored document.
type DocumentMeta struct {
	ID           string    `json:"id"`
	Dimensions   int       `json:"dimensions"`
	ContentBytes int       `json:"content_bytes"`
	IngestedAt   time.Time `json:"ingested_at"`
}

// NewDocumentIngestedEvent fills in the envelope fields.
func NewDocumentIngestedEvent(source EventSource, doc DocumentMeta) *DocumentIngestedEvent {
	return &DocumentIngestedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDocumentIngested,
		EventID:       uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		Document:      doc,
	}
}
