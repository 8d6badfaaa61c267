// Package ingest turns (id, text) pairs into stored documents: it embeds the
// text, persists the record and announces it on the event stream.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/docsearch/pkg/embeddings"
	"github.com/papercomputeco/docsearch/pkg/eventstream"
	"github.com/papercomputeco/docsearch/pkg/vector"
)

const (
	DefaultEmbedTimeout = 30 * time.Second
	DefaultStoreTimeout = 10 * time.Second

	OriginAPI     = "api"
	OriginMCP     = "mcp"
	OriginWatcher = "watcher"
)

// Config is the configuration options for the ingestion service.
type Config struct {
	// Embedder turns document text into a vector.
	Embedder embeddings.Embedder

	// Driver is the document store.
	Driver vector.Driver

	// Publisher receives an event for every stored document. Optional.
	Publisher eventstream.Publisher

	// EmbedTimeout bounds the embedding call. Zero uses DefaultEmbedTimeout.
	EmbedTimeout time.Duration

	// StoreTimeout bounds the insert. Zero uses DefaultStoreTimeout.
	StoreTimeout time.Duration

	Logger *slog.Logger
}

// Service embeds and stores documents.
type Service struct {
	embedder     embeddings.Embedder
	driver       vector.Driver
	publisher    eventstream.Publisher
	embedTimeout time.Duration
	storeTimeout time.Duration
	logger       *slog.Logger
}

// NewService creates an ingestion service.
func NewService(c Config) (*Service, error) {
	if c.Embedder == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if c.Driver == nil {
		return nil, errors.New("ingest: vector driver is required")
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.EmbedTimeout == 0 {
		c.EmbedTimeout = DefaultEmbedTimeout
	}
	if c.StoreTimeout == 0 {
		c.StoreTimeout = DefaultStoreTimeout
	}

	return &Service{
		embedder:     c.Embedder,
		driver:       c.Driver,
		publisher:    c.Publisher,
		embedTimeout: c.EmbedTimeout,
		storeTimeout: c.StoreTimeout,
		logger:       c.Logger,
	}, nil
}

// Ingest embeds text and stores it under id. Nothing is persisted when the
// embedding call fails.
func (s *Service) Ingest(ctx context.Context, id, text string) error {
	return s.IngestFrom(ctx, eventstream.EventSource{Origin: OriginAPI}, id, text)
}

// IngestFrom is Ingest with the surface that produced the document recorded
// on the published event.
func (s *Service) IngestFrom(ctx context.Context, source eventstream.EventSource, id, text string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: document id is empty", vector.ErrInvalidInput)
	}

	embedding, err := vector.WithTimeout(ctx, s.embedTimeout, "embed", func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	})
	if err != nil {
		s.logger.Warn("embedding failed, document not stored", "id", id, "error", err)
		return err
	}

	doc := vector.Document{
		ID:         id,
		Content:    text,
		Embedding:  embedding,
		IngestedAt: time.Now().UTC(),
	}

	_, err = vector.WithTimeout(ctx, s.storeTimeout, "store insert", func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.driver.Insert(ctx, doc)
	})
	if err != nil {
		s.logger.Warn("insert failed", "id", id, "error", err)
		return err
	}

	s.logger.Info("document ingested",
		"id", id,
		"origin", source.Origin,
		"dimensions", len(embedding),
		"content_bytes", len(text),
	)

	s.publish(ctx, source, doc)
	return nil
}

func (s *Service) publish(ctx context.Context, source eventstream.EventSource, doc vector.Document) {
	if s.publisher == nil {
		return
	}

	event := eventstream.NewDocumentIngestedEvent(source, eventstream.DocumentMeta{
		ID:           doc.ID,
		Dimensions:   len(doc.Embedding),
		ContentBytes: len(doc.Content),
		IngestedAt:   doc.IngestedAt,
	})
	if err := s.publisher.PublishIngested(ctx, event); err != nil {
		s.logger.Warn("publishing ingested event failed", "id", doc.ID, "error", err)
	}
}
