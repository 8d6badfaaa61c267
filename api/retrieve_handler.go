package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	apisearch "github.com/papercomputeco/docsearch/api/search"
	"github.com/papercomputeco/docsearch/pkg/llm"
	"github.com/papercomputeco/docsearch/pkg/retrieve"
)

// handleRetrieve handles GET /v1/retrieve requests.
// Query parameters:
//   - query (required): the query text
//   - answer (optional, default false): generate an answer from the match
func (s *Server) handleRetrieve(c *fiber.Ctx) error {
	if s.config.Retriever == nil {
		return notConfigured(c, "retrieval")
	}

	generate := false
	if v := c.Query("answer"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
				Error: "answer must be true or false",
			})
		}
		generate = b
	}

	result, err := s.config.Retriever.Retrieve(c.UserContext(), c.Query("query"), retrieve.Options{Generate: generate})
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(apisearch.BuildRetrieveOutput(result))
}

// handleSearch handles GET /v1/search requests.
// Query parameters:
//   - query (required): the search query text
//   - top_k (optional, default 5): number of results to return
func (s *Server) handleSearch(c *fiber.Ctx) error {
	if s.config.Retriever == nil {
		return notConfigured(c, "search")
	}

	topK := retrieve.DefaultTopK
	if topKStr := c.Query("top_k"); topKStr != "" {
		parsed, err := strconv.Atoi(topKStr)
		if err != nil || parsed <= 0 {
			return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{
				Error: "top_k must be a positive integer",
			})
		}
		topK = parsed
	}

	query := c.Query("query")
	matches, err := s.config.Retriever.Search(c.UserContext(), query, topK)
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(apisearch.BuildSearchOutput(query, matches))
}
