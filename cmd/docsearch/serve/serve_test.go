package servecmder

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/docsearch/pkg/config"
	"github.com/papercomputeco/docsearch/pkg/credentials"
	"github.com/papercomputeco/docsearch/pkg/eventstream/kafka"
	"github.com/papercomputeco/docsearch/pkg/eventstream/nop"
	dslogger "github.com/papercomputeco/docsearch/pkg/logger"
	"github.com/papercomputeco/docsearch/pkg/vector/inmemory"
)

var _ = Describe("NewServeCmd", func() {
	It("registers the store, embedding and watcher flags", func() {
		cmd := NewServeCmd()
		for _, name := range []string{
			"listen", "sqlite", "vector-store-provider", "conflict",
			"embedding-model", "embedding-dimensions", "generation-provider",
			"events-provider", "watch", "workers", "no-mcp", "no-generate", "log-file",
		} {
			Expect(cmd.Flags().Lookup(name)).NotTo(BeNil(), name)
		}
	})

	It("resolves flags over the config file in PreRunE", func() {
		configDir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(configDir, "config.toml"), []byte("[vector_store]\nprovider = \"chroma\"\nconflict = \"reject\"\n"), 0o600)).To(Succeed())

		cmder := &serveCommander{flags: config.ServeFlags}
		cmd := newServeCmd(cmder)
		cmd.Flags().String("config-dir", configDir, "")
		Expect(cmd.Flags().Set("vector-store-provider", "inmemory")).To(Succeed())
		Expect(cmd.Flags().Set("no-generate", "true")).To(Succeed())

		Expect(cmd.PreRunE(cmd, nil)).To(Succeed())
		Expect(cmder.cfg.VectorStore.Provider).To(Equal("inmemory"))
		Expect(cmder.cfg.VectorStore.Conflict).To(Equal("reject"))
		Expect(cmder.cfg.Generation.Enabled).To(BeFalse())
	})
})

var _ = Describe("newLogger", func() {
	It("writes JSON records to --log-file as well", func() {
		path := filepath.Join(GinkgoT().TempDir(), "serve.log")
		cmder := &serveCommander{logFile: path}

		closeLog, err := cmder.newLogger()
		Expect(err).NotTo(HaveOccurred())
		cmder.logger.Info("document ingested", "id", "alpha")
		closeLog()

		data, err := os.ReadFile(path)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(ContainSubstring(`"msg":"document ingested"`))
		Expect(string(data)).To(ContainSubstring(`"id":"alpha"`))
	})

	It("logs to the console only without --log-file", func() {
		cmder := &serveCommander{}
		closeLog, err := cmder.newLogger()
		Expect(err).NotTo(HaveOccurred())
		defer closeLog()
		Expect(cmder.logger).NotTo(BeNil())
	})

	It("fails when the log file cannot be opened", func() {
		cmder := &serveCommander{logFile: filepath.Join(GinkgoT().TempDir(), "missing", "serve.log")}
		_, err := cmder.newLogger()
		Expect(err).To(MatchError(ContainSubstring("opening log file")))
	})
})

var _ = Describe("pipeline construction", func() {
	var (
		ctx       context.Context
		cfg       *config.Config
		configDir string
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = config.NewDefaultConfig()
		configDir = GinkgoT().TempDir()
		GinkgoT().Setenv("OPENAI_API_KEY", "")
		GinkgoT().Setenv("ANTHROPIC_API_KEY", "")
	})

	Describe("newDriver", func() {
		It("opens the in-memory store", func() {
			cfg.VectorStore.Provider = "inmemory"
			d, err := newDriver(ctx, cfg, configDir, dslogger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(d).To(BeAssignableToTypeOf(&inmemory.Driver{}))
			Expect(d.Close()).To(Succeed())
		})

		It("opens the sqlite store at the configured path", func() {
			cfg.Storage.SQLitePath = filepath.Join(configDir, "test.sqlite")
			cfg.Embedding.Dimensions = 3

			d, err := newDriver(ctx, cfg, configDir, dslogger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(filepath.Join(configDir, "test.sqlite")).To(BeAnExistingFile())
			Expect(d.Close()).To(Succeed())
		})

		It("rejects unknown conflict policies", func() {
			cfg.VectorStore.Provider = "inmemory"
			cfg.VectorStore.Conflict = "merge"
			_, err := newDriver(ctx, cfg, configDir, dslogger.Nop())
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown providers", func() {
			cfg.VectorStore.Provider = "redis"
			_, err := newDriver(ctx, cfg, configDir, dslogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("redis")))
		})
	})

	Describe("newEmbedder", func() {
		It("builds an ollama embedder without credentials", func() {
			mgr, err := credentials.NewManager(configDir)
			Expect(err).NotTo(HaveOccurred())

			e, err := newEmbedder(cfg, mgr)
			Expect(err).NotTo(HaveOccurred())
			Expect(e.Close()).To(Succeed())
		})

		It("uses the stored openai key", func() {
			mgr, err := credentials.NewManager(configDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(mgr.SetKey("openai", "sk-test")).To(Succeed())
			cfg.Embedding.Provider = "openai"

			_, err = newEmbedder(cfg, mgr)
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails for openai without a key", func() {
			mgr, err := credentials.NewManager(configDir)
			Expect(err).NotTo(HaveOccurred())
			cfg.Embedding.Provider = "openai"

			_, err = newEmbedder(cfg, mgr)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newGenerator", func() {
		It("returns nil when generation is disabled", func() {
			cfg.Generation.Enabled = false
			g, err := newGenerator(cfg, nil, dslogger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(g).To(BeNil())
		})

		It("builds a generator for the configured provider", func() {
			mgr, err := credentials.NewManager(configDir)
			Expect(err).NotTo(HaveOccurred())

			g, err := newGenerator(cfg, mgr, dslogger.Nop())
			Expect(err).NotTo(HaveOccurred())
			Expect(g).NotTo(BeNil())
		})

		It("rejects unsupported providers", func() {
			cfg.Generation.Provider = "bard"
			_, err := newGenerator(cfg, nil, dslogger.Nop())
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newPublisher", func() {
		It("defaults to the no-op publisher", func() {
			p, err := newPublisher(config.EventsConfig{Provider: "none"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&nop.Publisher{}))
		})

		It("builds a kafka publisher from the broker list", func() {
			p, err := newPublisher(config.EventsConfig{Provider: "kafka", Brokers: "localhost:9092", Topic: "docs"})
			Expect(err).NotTo(HaveOccurred())
			Expect(p).To(BeAssignableToTypeOf(&kafka.Publisher{}))
			Expect(p.Close()).To(Succeed())
		})

		It("requires kafka brokers", func() {
			_, err := newPublisher(config.EventsConfig{Provider: "kafka"})
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown providers", func() {
			_, err := newPublisher(config.EventsConfig{Provider: "nats"})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("newPipeline", func() {
		It("wires ingestion and retrieval over one store", func() {
			cfg.VectorStore.Provider = "inmemory"
			cfg.Generation.Enabled = false

			p, err := newPipeline(ctx, cfg, configDir, dslogger.Nop())
			Expect(err).NotTo(HaveOccurred())
			defer p.Close()

			Expect(p.ingester).NotTo(BeNil())
			Expect(p.retriever).NotTo(BeNil())
			Expect(p.retriever.HasGenerator()).To(BeFalse())
		})

		It("fails on bad timeouts", func() {
			cfg.Timeouts.Embed = "later"
			_, err := newPipeline(ctx, cfg, configDir, dslogger.Nop())
			Expect(err).To(MatchError(ContainSubstring("timeouts.embed")))
		})
	})
})
