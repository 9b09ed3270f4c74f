package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/draft-pipeline/internal/observability"
	"github.com/spec-kit/draft-pipeline/internal/service"
)

// AnalyticsHandler serves pipeline aggregates and process counters.
type AnalyticsHandler struct {
	analytics *service.AnalyticsService
	metrics   *observability.Metrics
}

// NewAnalyticsHandler constructs handler.
func NewAnalyticsHandler(analytics *service.AnalyticsService, metrics *observability.Metrics) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, metrics: metrics}
}

// Analytics GET /analytics.
func (h *AnalyticsHandler) Analytics(c *fiber.Ctx) error {
	out, err := h.analytics.Compute(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": out})
}

// Metrics GET /metrics.
func (h *AnalyticsHandler) Metrics(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"data": h.metrics.Snapshot()})
}
