// Package retrieve answers semantic queries by embedding the query and
// scanning every stored document for the most similar one.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/docsearch/pkg/embeddings"
	"github.com/papercomputeco/docsearch/pkg/llm"
	"github.com/papercomputeco/docsearch/pkg/vector"
)

const (
	DefaultEmbedTimeout    = 30 * time.Second
	DefaultStoreTimeout    = 10 * time.Second
	DefaultGenerateTimeout = 60 * time.Second

	// DefaultTopK is used by Search when topK <= 0.
	DefaultTopK = 5
)

// Config is the configuration options for the retrieval service.
type Config struct {
	Embedder embeddings.Embedder
	Driver   vector.Driver

	// Generator answers queries from the matched document. Optional.
	Generator llm.Generator

	EmbedTimeout    time.Duration
	StoreTimeout    time.Duration
	GenerateTimeout time.Duration

	Logger *slog.Logger
}

// Options tune a single Retrieve call.
type Options struct {
	// Generate asks the configured generator for an answer when a document
	// matched.
	Generate bool
}

// Result is the outcome of a query. A nil Match means nothing in the store
// could be compared with the query.
type Result struct {
	Query    string
	Match    *Match
	Answer   string
	Warnings []string
}

// Service runs retrieval queries.
type Service struct {
	embedder        embeddings.Embedder
	driver          vector.Driver
	generator       llm.Generator
	embedTimeout    time.Duration
	storeTimeout    time.Duration
	generateTimeout time.Duration
	logger          *slog.Logger
}

// NewService creates a retrieval service.
func NewService(c Config) (*Service, error) {
	if c.Embedder == nil {
		return nil, errors.New("retrieve: embedder is required")
	}
	if c.Driver == nil {
		return nil, errors.New("retrieve: vector driver is required")
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
	if c.GenerateTimeout == 0 {
		c.GenerateTimeout = DefaultGenerateTimeout
	}

	return &Service{
		embedder:        c.Embedder,
		driver:          c.Driver,
		generator:       c.Generator,
		embedTimeout:    c.EmbedTimeout,
		storeTimeout:    c.StoreTimeout,
		generateTimeout: c.GenerateTimeout,
		logger:          c.Logger,
	}, nil
}

// HasGenerator reports whether answers can be generated.
func (s *Service) HasGenerator() bool {
	return s.generator != nil
}

// Retrieve returns the single most similar document for query. A failed
// generation call is reported in Result.Warnings and never fails the query.
func (s *Service) Retrieve(ctx context.Context, query string, opts Options) (*Result, error) {
	docs, embedding, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}

	match, skipped := Best(embedding, docs)
	s.logSkipped(skipped)

	result := &Result{Query: query, Match: match}
	if match == nil {
		s.logger.Debug("no match", "query", query, "documents", len(docs))
		return result, nil
	}

	s.logger.Debug("match found", "query", query, "id", match.ID, "score", match.Score)

	if !opts.Generate {
		return result, nil
	}
	if s.generator == nil {
		result.Warnings = append(result.Warnings, "answer generation is not configured")
		return result, nil
	}

	answer, err := vector.WithTimeout(ctx, s.generateTimeout, "generate", func(ctx context.Context) (string, error) {
		return s.generator.Generate(ctx, match.Content, query)
	})
	if err != nil {
		s.logger.Warn("answer generation failed", "id", match.ID, "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("answer generation failed: %v", err))
		return result, nil
	}

	result.Answer = answer
	return result, nil
}

// Search returns up to topK matches by descending score. topK <= 0 uses
// DefaultTopK.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	docs, embedding, err := s.load(ctx, query)
	if err != nil {
		return nil, err
	}

	matches, skipped := Rank(embedding, docs, topK)
	s.logSkipped(skipped)
	return matches, nil
}

// load validates and embeds the query and reads a snapshot of the store.
func (s *Service) load(ctx context.Context, query string) ([]vector.Document, []float32, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil, fmt.Errorf("%w: query is empty", vector.ErrInvalidInput)
	}

	embedding, err := vector.WithTimeout(ctx, s.embedTimeout, "embed", func(ctx context.Context) ([]float32, error) {
		return s.embedder.Embed(ctx, query)
	})
	if err != nil {
		return nil, nil, err
	}

	docs, err := vector.WithTimeout(ctx, s.storeTimeout, "store list", s.driver.List)
	if err != nil {
		return nil, nil, err
	}

	return docs, embedding, nil
}

func (s *Service) logSkipped(skipped []Skipped) {
	for _, sk := range skipped {
		s.logger.Warn("document skipped during scan", "id", sk.ID, "error", sk.Err)
	}
}
