// Package mcp provides an MCP (Model Context Protocol) server exposing
// document retrieval and ingestion as tools.
package mcp

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
	"github.com/papercomputeco/docsearch/pkg/utils"
)

type Config struct {
	// Retriever answers the retrieve tool.
	Retriever *retrieve.Service

	// Ingester backs the ingest tool. Optional; the tool is only registered
	// when set.
	Ingester *ingest.Service

	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the retrieve and ingest tools.
func NewServer(c Config) (*Server, error) {
	if c.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "docsearch",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        retrieveToolName,
		Description: retrieveDescription,
	}, s.handleRetrieve)

	if c.Ingester != nil {
		mcp.AddTool(mcpServer, &mcp.Tool{
			Name:        ingestToolName,
			Description: ingestDescription,
		}, s.handleIngest)
	}

	s.mcpServer = mcpServer

	// Stateless streamable HTTP handler
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}
