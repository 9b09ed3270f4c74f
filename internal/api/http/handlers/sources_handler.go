package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/draft-pipeline/internal/service"
)

// SourcesHandler exposes the knowledge-base catalog.
type SourcesHandler struct {
	sources *service.SourceService
}

// NewSourcesHandler constructs handler.
func NewSourcesHandler(sources *service.SourceService) *SourcesHandler {
	return &SourcesHandler{sources: sources}
}

// List GET /sources.
func (h *SourcesHandler) List(c *fiber.Ctx) error {
	sources, err := h.sources.KnowledgeSources(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": knowledgeSourceResponses(sources)})
}
