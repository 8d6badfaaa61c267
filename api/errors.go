package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docsearch/pkg/llm"
	"github.com/papercomputeco/docsearch/pkg/vector"
)

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, vector.ErrInvalidInput):
		return fiber.StatusBadRequest
	case errors.Is(err, vector.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, vector.ErrDuplicateID):
		return fiber.StatusConflict
	case errors.Is(err, vector.ErrDependencyTimeout):
		return fiber.StatusGatewayTimeout
	case errors.Is(err, vector.ErrEmbeddingUnavailable):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError logs err and writes it as an ErrorResponse.
func (s *Server) writeError(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("request failed", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	} else {
		s.logger.Debug("request rejected", "method", c.Method(), "path", c.Path(), "status", status, "error", err)
	}
	return c.Status(status).JSON(llm.ErrorResponse{Error: err.Error()})
}

func notConfigured(c *fiber.Ctx, what string) error {
	return c.Status(fiber.StatusServiceUnavailable).JSON(llm.ErrorResponse{
		Error: what + " is not configured: embedder and vector driver are required",
	})
}
