package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/papercomputeco/docsearch/api/search"
	"github.com/papercomputeco/docsearch/pkg/eventstream"
	"github.com/papercomputeco/docsearch/pkg/ingest"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
)

var (
	retrieveToolName    = "retrieve"
	retrieveDescription = "Find the stored document most similar to the query text. Returns the document id and cosine similarity score, and optionally an answer generated from the document."

	ingestToolName    = "ingest"
	ingestDescription = "Store a document's extracted text under an id so it can be retrieved later. An existing id is overwritten unless the store rejects duplicates."
)

// RetrieveInput represents the input arguments for the retrieve tool.
type RetrieveInput struct {
	Query  string `json:"query" jsonschema:"the query text to match against stored documents"`
	Answer bool   `json:"answer,omitempty" jsonschema:"generate a natural-language answer from the matched document"`
}

// IngestInput represents the input arguments for the ingest tool.
type IngestInput struct {
	ID   string `json:"id" jsonschema:"stable document identifier"`
	Text string `json:"text" jsonschema:"the document's extracted text"`
}

// IngestOutput represents the output of the ingest tool.
type IngestOutput struct {
	ID string `json:"id"`
}

func (s *Server) handleRetrieve(ctx context.Context, _ *mcp.CallToolRequest, input RetrieveInput) (*mcp.CallToolResult, search.RetrieveOutput, error) {
	s.config.Logger.Debug("MCP retrieve request", "query", input.Query, "answer", input.Answer)

	result, err := s.config.Retriever.Retrieve(ctx, input.Query, retrieve.Options{Generate: input.Answer})
	if err != nil {
		s.config.Logger.Error("MCP retrieve failed", "error", err)
		return toolError("Failed to retrieve: %v", err), search.RetrieveOutput{}, nil
	}

	return structured(s, search.BuildRetrieveOutput(result))
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (*mcp.CallToolResult, IngestOutput, error) {
	s.config.Logger.Debug("MCP ingest request", "id", input.ID)

	source := eventstream.EventSource{Origin: ingest.OriginMCP}
	if err := s.config.Ingester.IngestFrom(ctx, source, input.ID, input.Text); err != nil {
		s.config.Logger.Error("MCP ingest failed", "id", input.ID, "error", err)
		return toolError("Failed to ingest: %v", err), IngestOutput{}, nil
	}

	return structured(s, IngestOutput{ID: input.ID})
}

// structured returns output both as structured content and, for clients that
// only read text, as serialized JSON.
func structured[T any](s *Server, output T) (*mcp.CallToolResult, T, error) {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		s.config.Logger.Error("failed to marshal tool output", "error", err)
		var zero T
		return toolError("Failed to serialize results: %v", err), zero, nil
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(jsonBytes)},
		},
	}, output, nil
}

func toolError(format string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(format, err)},
		},
	}
}
