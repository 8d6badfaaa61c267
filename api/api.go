package api

import (
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docsearch/api/mcp"
)

// maxBodySize bounds ingestion request bodies. Extracted text of large
// documents runs to several megabytes.
const maxBodySize = 32 * 1024 * 1024

// Server is the API server for ingesting and querying documents.
type Server struct {
	config Config
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server. The driver and services are injected
// so they can be shared with other components such as the directory watcher.
func NewServer(config Config, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		BodyLimit:             maxBodySize,
	})

	s := &Server{
		config: config,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)

	v1 := app.Group("/v1")
	v1.Post("/documents", s.handleIngest)
	v1.Get("/documents", s.handleListDocuments)
	v1.Get("/documents/:id", s.handleGetDocument)
	v1.Delete("/documents/:id", s.handleDeleteDocument)
	v1.Get("/retrieve", s.handleRetrieve)
	v1.Get("/search", s.handleSearch)

	if !config.DisableMCP && config.Retriever != nil {
		mcpServer, err := mcp.NewServer(mcp.Config{
			Retriever: config.Retriever,
			Ingester:  config.Ingester,
			Logger:    logger,
		})
		if err != nil {
			return nil, err
		}
		app.All("/mcp", adaptor.HTTPHandler(mcpServer.Handler()))
	}

	return s, nil
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}
