package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/draft-pipeline/internal/api/http/handlers"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health    *handlers.HealthHandler
	Tickets   *handlers.TicketsHandler
	Sources   *handlers.SourcesHandler
	Analytics *handlers.AnalyticsHandler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/metrics", cfg.Analytics.Metrics)
	app.Get("/analytics", cfg.Analytics.Analytics)
	app.Get("/sources", cfg.Sources.List)

	tickets := app.Group("/tickets")
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Get("/:id/history", cfg.Tickets.History)
	tickets.Get("/:id/suggestions", cfg.Tickets.Suggestions)
	tickets.Post("/:id/generate", cfg.Tickets.GenerateDraft)
	tickets.Put("/:id/draft", cfg.Tickets.EditDraft)
	tickets.Post("/:id/send", cfg.Tickets.SendDraft)

	session := tickets.Group("/:id/session")
	session.Get("", cfg.Tickets.GetSession)
	session.Post("", cfg.Tickets.OpenSession)
	session.Post("/toggle", cfg.Tickets.ToggleSource)
	session.Post("/commit", cfg.Tickets.CommitSession)
	session.Delete("", cfg.Tickets.DismissSession)
}
