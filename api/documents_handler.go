package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docsearch/pkg/llm"
)

// IngestRequest is the body of POST /v1/documents.
type IngestRequest struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// IngestResponse is returned after a document is stored.
type IngestResponse struct {
	ID string `json:"id"`
}

// DocumentListResponse lists stored document ids.
type DocumentListResponse struct {
	Count int      `json:"count"`
	IDs   []string `json:"ids"`
}

// DocumentResponse describes a single stored document.
type DocumentResponse struct {
	ID         string    `json:"id"`
	Content    string    `json:"content"`
	Dimensions int       `json:"dimensions"`
	IngestedAt time.Time `json:"ingested_at,omitzero"`
}

// handleIngest handles POST /v1/documents.
func (s *Server) handleIngest(c *fiber.Ctx) error {
	if s.config.Ingester == nil {
		return notConfigured(c, "ingestion")
	}

	var req IngestRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.ID) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "id is required"})
	}

	if err := s.config.Ingester.Ingest(c.UserContext(), req.ID, req.Text); err != nil {
		return s.writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(IngestResponse{ID: req.ID})
}

// handleListDocuments handles GET /v1/documents.
func (s *Server) handleListDocuments(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return notConfigured(c, "document store")
	}

	docs, err := s.config.Driver.List(c.UserContext())
	if err != nil {
		return s.writeError(c, err)
	}

	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return c.JSON(DocumentListResponse{Count: len(ids), IDs: ids})
}

// handleGetDocument handles GET /v1/documents/:id.
func (s *Server) handleGetDocument(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return notConfigured(c, "document store")
	}

	doc, err := s.config.Driver.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return s.writeError(c, err)
	}

	return c.JSON(DocumentResponse{
		ID:         doc.ID,
		Content:    doc.Content,
		Dimensions: len(doc.Embedding),
		IngestedAt: doc.IngestedAt,
	})
}

// handleDeleteDocument handles DELETE /v1/documents/:id.
func (s *Server) handleDeleteDocument(c *fiber.Ctx) error {
	if s.config.Driver == nil {
		return notConfigured(c, "document store")
	}

	if err := s.config.Driver.Delete(c.UserContext(), c.Params("id")); err != nil {
		return s.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
