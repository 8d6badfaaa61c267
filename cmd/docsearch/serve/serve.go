// Package servecmder provides the serve command, which runs the docsearch
// API and MCP server and optionally a directory watcher.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/docsearch/api"
	"github.com/papercomputeco/docsearch/pkg/config"
	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/logger"
)

type serveCommander struct {
	flags config.FlagSet

	listen           string
	sqlitePath       string
	vectorProvider   string
	vectorTarget     string
	vectorCollection string
	conflict         string
	embeddingProv    string
	embeddingTarget  string
	embeddingModel   string
	embeddingDims    uint
	genProvider      string
	genTarget        string
	genModel         string
	eventsProvider   string
	eventsBrokers    string
	eventsTopic      string

	watchDir   string
	workers    uint
	noMCP      bool
	noGenerate bool
	logFile    string
	debug      bool
	configDir  string
	cfg        *config.Config
	logger     *slog.Logger
}

const serveLongDesc string = `Run the docsearch server.

The server embeds and stores documents posted to /v1/documents and answers
/v1/retrieve and /v1/search with the closest stored documents. An MCP
endpoint is mounted at /mcp with "retrieve" and "ingest" tools.

Every flag can also be set in config.toml or with a DOCSEARCH_ environment
variable (for example DOCSEARCH_EMBEDDING_MODEL). Flags win over the
environment, which wins over the file.

With --watch, .txt and .md files created or written in the directory are
ingested in the background, using the file name without extension as id.

Examples:
  docsearch serve
  docsearch serve --vector-store-provider qdrant --vector-store-target localhost:6334
  docsearch serve --watch ./docs --conflict reject`

const serveShortDesc string = "Run the docsearch server"

var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagSQLite,
	config.FlagVectorStoreProv,
	config.FlagVectorStoreTgt,
	config.FlagVectorStoreColl,
	config.FlagConflict,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagGenProvider,
	config.FlagGenTarget,
	config.FlagGenModel,
	config.FlagEventsProvider,
	config.FlagEventsBrokers,
	config.FlagEventsTopic,
}

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{
		flags: config.ServeFlags,
	})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, cmder.flags, serveFlagKeys)

			cmder.cfg = config.FromViper(v)
			if cmder.noGenerate {
				cmder.cfg.Generation.Enabled = false
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(context.Background())
		},
	}

	config.AddStringFlag(cmd, cmder.flags, config.FlagAPIListen, &cmder.listen)
	config.AddStringFlag(cmd, cmder.flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagVectorStoreColl, &cmder.vectorCollection)
	config.AddStringFlag(cmd, cmder.flags, config.FlagConflict, &cmder.conflict)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingProv, &cmder.embeddingProv)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingTgt, &cmder.embeddingTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEmbeddingModel, &cmder.embeddingModel)
	config.AddUintFlag(cmd, cmder.flags, config.FlagEmbeddingDims, &cmder.embeddingDims)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGenProvider, &cmder.genProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGenTarget, &cmder.genTarget)
	config.AddStringFlag(cmd, cmder.flags, config.FlagGenModel, &cmder.genModel)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventsProvider, &cmder.eventsProvider)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventsBrokers, &cmder.eventsBrokers)
	config.AddStringFlag(cmd, cmder.flags, config.FlagEventsTopic, &cmder.eventsTopic)

	cmd.Flags().StringVarP(&cmder.watchDir, "watch", "w", "", "Ingest .txt and .md files written to this directory")
	cmd.Flags().UintVar(&cmder.workers, "workers", 0, "Number of watcher ingestion workers (default 3)")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Do not mount the MCP endpoint")
	cmd.Flags().BoolVar(&cmder.noGenerate, "no-generate", false, "Disable answer generation")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")

	return cmd
}

func (c *serveCommander) run(ctx context.Context) error {
	closeLog, err := c.newLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	p, err := newPipeline(ctx, c.cfg, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer p.Close()

	server, err := api.NewServer(api.Config{
		ListenAddr: c.cfg.API.Listen,
		Driver:     p.driver,
		Ingester:   p.ingester,
		Retriever:  p.retriever,
		DisableMCP: c.noMCP,
	}, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	var pool *ingest.Pool
	watcherDone := make(chan struct{})
	if c.watchDir == "" {
		close(watcherDone)
	} else {
		pool, err = ingest.NewPool(ingest.PoolConfig{
			Service:    p.ingester,
			NumWorkers: c.workers,
			Logger:     c.logger,
		})
		if err != nil {
			return err
		}

		watcher, err := ingest.NewWatcher(ingest.WatcherConfig{
			Dir:    c.watchDir,
			Pool:   pool,
			Logger: c.logger,
		})
		if err != nil {
			pool.Close()
			return err
		}

		go func() {
			defer close(watcherDone)
			if err := watcher.Run(ctx, nil); err != nil {
				errChan <- fmt.Errorf("watcher error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case runErr = <-errChan:
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	cancel()
	<-watcherDone
	if pool != nil {
		pool.Close()
		done, failed := pool.Stats()
		c.logger.Info("watcher stopped", "ingested", done, "failed", failed)
	}

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- server.Shutdown() }()
	select {
	case err := <-shutdownDone:
		if err != nil {
			c.logger.Warn("API server shutdown", "error", err)
		}
	case <-time.After(10 * time.Second):
		c.logger.Warn("API server shutdown timed out")
	}

	return runErr
}

// newLogger builds the console logger and, with --log-file, fans records out
// to a JSON file as well. The returned func closes the file.
func (c *serveCommander) newLogger() (func(), error) {
	console := logger.New(logger.WithDebug(c.debug), logger.WithPretty(logger.IsTerminal()))
	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(true),
		logger.WithSource(c.debug),
		logger.WithWriter(f),
	))
	return func() { f.Close() }, nil
}
