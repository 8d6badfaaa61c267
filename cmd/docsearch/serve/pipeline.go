package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	sqlitepath "github.com/papercomputeco/docsearch/cmd/docsearch/sqlitepath"
	"github.com/papercomputeco/docsearch/pkg/config"
	"github.com/papercomputeco/docsearch/pkg/credentials"
	"github.com/papercomputeco/docsearch/pkg/dotdir"
	"github.com/papercomputeco/docsearch/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/docsearch/pkg/embeddings/utils"
	"github.com/papercomputeco/docsearch/pkg/eventstream"
	"github.com/papercomputeco/docsearch/pkg/eventstream/kafka"
	"github.com/papercomputeco/docsearch/pkg/eventstream/nop"
	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/llm"
	"github.com/papercomputeco/docsearch/pkg/llm/provider"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
	"github.com/papercomputeco/docsearch/pkg/vector"
	vectorutils "github.com/papercomputeco/docsearch/pkg/vector/utils"
)

const (
	eventsNone  = "none"
	eventsKafka = "kafka"
)

// pipeline owns everything the server needs and closes it in reverse order.
type pipeline struct {
	driver    vector.Driver
	embedder  embeddings.Embedder
	publisher eventstream.Publisher
	ingester  *ingest.Service
	retriever *retrieve.Service
	logger    *slog.Logger
}

func newPipeline(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (*pipeline, error) {
	embedTimeout, storeTimeout, generateTimeout, err := cfg.Timeouts.Parse()
	if err != nil {
		return nil, err
	}

	credMgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	p := &pipeline{logger: logger}

	p.driver, err = newDriver(ctx, cfg, configDir, logger)
	if err != nil {
		return nil, err
	}

	p.embedder, err = newEmbedder(cfg, credMgr)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.publisher, err = newPublisher(cfg.Events)
	if err != nil {
		p.Close()
		return nil, err
	}

	generator, err := newGenerator(cfg, credMgr, logger)
	if err != nil {
		p.Close()
		return nil, err
	}

	p.ingester, err = ingest.NewService(ingest.Config{
		Embedder:     p.embedder,
		Driver:       p.driver,
		Publisher:    p.publisher,
		EmbedTimeout: embedTimeout,
		StoreTimeout: storeTimeout,
		Logger:       logger,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	p.retriever, err = retrieve.NewService(retrieve.Config{
		Embedder:        p.embedder,
		Driver:          p.driver,
		Generator:       generator,
		EmbedTimeout:    embedTimeout,
		StoreTimeout:    storeTimeout,
		GenerateTimeout: generateTimeout,
		Logger:          logger,
	})
	if err != nil {
		p.Close()
		return nil, err
	}

	return p, nil
}

// Close releases the publisher, embedder and store.
func (p *pipeline) Close() {
	var errs []error
	if p.publisher != nil {
		errs = append(errs, p.publisher.Close())
	}
	if p.embedder != nil {
		errs = append(errs, p.embedder.Close())
	}
	if p.driver != nil {
		errs = append(errs, p.driver.Close())
	}
	if err := errors.Join(errs...); err != nil {
		p.logger.Warn("closing pipeline", "error", err)
	}
}

func newDriver(ctx context.Context, cfg *config.Config, configDir string, logger *slog.Logger) (vector.Driver, error) {
	conflict, err := vector.ParseConflictPolicy(cfg.VectorStore.Conflict)
	if err != nil {
		return nil, err
	}

	target := cfg.VectorStore.Target
	if cfg.VectorStore.Provider == vectorutils.ProviderSQLiteVec && target == "" {
		dir, err := dotdir.NewManager().Target(configDir)
		if err != nil {
			return nil, err
		}
		target, err = sqlitepath.ResolveSQLitePath(cfg.Storage.SQLitePath, dir)
		if err != nil {
			return nil, err
		}
	}

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: cfg.VectorStore.Provider,
		Target:       target,
		Collection:   cfg.VectorStore.Collection,
		Dimensions:   cfg.Embedding.Dimensions,
		Conflict:     conflict,
		APIKey:       os.Getenv("QDRANT_API_KEY"),
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s document store: %w", cfg.VectorStore.Provider, err)
	}

	logger.Info("using document store",
		"provider", cfg.VectorStore.Provider,
		"target", target,
		"dimensions", cfg.Embedding.Dimensions,
		"conflict", conflict,
	)
	return driver, nil
}

func newEmbedder(cfg *config.Config, credMgr *credentials.Manager) (embeddings.Embedder, error) {
	var apiKey string
	if cfg.Embedding.Provider == provider.OpenAI {
		key, err := credMgr.ResolveKey(provider.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("resolving openai key: %w", err)
		}
		apiKey = key
	}

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		APIKey:       apiKey,
		Dimensions:   int(cfg.Embedding.Dimensions), //nolint:gosec // bounded by config validation
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return embedder, nil
}

// newGenerator returns nil when generation is disabled.
func newGenerator(cfg *config.Config, credMgr *credentials.Manager, logger *slog.Logger) (llm.Generator, error) {
	if !cfg.Generation.Enabled {
		logger.Info("answer generation disabled")
		return nil, nil
	}

	generator, err := provider.NewGenerator(provider.Config{
		Provider: cfg.Generation.Provider,
		Model:    cfg.Generation.Model,
		BaseURL:  cfg.Generation.Target,
		CredMgr:  credMgr,
	}, cfg.Generation.MaxContentChars, logger)
	if err != nil {
		return nil, fmt.Errorf("creating generator: %w", err)
	}
	return generator, nil
}

func newPublisher(c config.EventsConfig) (eventstream.Publisher, error) {
	switch c.Provider {
	case eventsNone, "":
		return nop.NewPublisher(), nil
	case eventsKafka:
		publisher, err := kafka.NewPublisher(kafka.Config{
			Brokers: c.BrokerList(),
			Topic:   c.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		return publisher, nil
	default:
		return nil, fmt.Errorf("unsupported events provider: %q", c.Provider)
	}
}
