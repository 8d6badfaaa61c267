// Package api provides the HTTP API server for ingesting documents and
// running retrieval queries.
package api

import (
	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
	"github.com/papercomputeco/docsearch/pkg/vector"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8081")
	ListenAddr string

	// Driver backs the document listing endpoints.
	Driver vector.Driver

	// Ingester handles POST /v1/documents. Without it ingestion returns 503.
	Ingester *ingest.Service

	// Retriever handles /v1/retrieve and /v1/search. Without it those
	// endpoints return 503.
	Retriever *retrieve.Service

	// DisableMCP skips mounting the MCP server at /mcp.
	DisableMCP bool
}
