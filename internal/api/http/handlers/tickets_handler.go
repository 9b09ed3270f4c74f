package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/draft-pipeline/internal/api/dto"
	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/service"
	apperrors "github.com/spec-kit/draft-pipeline/pkg/util/errorutil"
)

// TicketsHandler serves the ticket lifecycle endpoints.
type TicketsHandler struct {
	tickets *service.TicketService
	drafts  *service.DraftService
	sources *service.SourceService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets *service.TicketService, drafts *service.DraftService, sources *service.SourceService) *TicketsHandler {
	return &TicketsHandler{tickets: tickets, drafts: drafts, sources: sources}
}

// ListTickets GET /tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	views, err := h.tickets.ListTickets(c.UserContext(), parseStatuses(c.Query("status")))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(views))
	for _, view := range views {
		items = append(items, ticketViewResponse(view))
	}
	return c.JSON(fiber.Map{"data": items})
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	view, err := h.tickets.GetTicket(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketViewResponse(view)})
}

// History GET /tickets/:id/history.
func (h *TicketsHandler) History(c *fiber.Ctx) error {
	entries, err := h.tickets.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		item := dto.TicketHistoryResponse{
			ID:         entry.ID,
			EventType:  entry.EventType,
			Actor:      entry.Actor,
			OccurredAt: entry.OccurredAt,
		}
		if len(entry.Payload) > 0 {
			if err := json.Unmarshal(entry.Payload, &item.Payload); err != nil {
				return corruptHistoryEntry(entry, err)
			}
		}
		items = append(items, item)
	}
	return c.JSON(fiber.Map{"data": items})
}

// corruptHistoryEntry fails the request rather than serve an entry without
// its payload. The error middleware logs the cause.
func corruptHistoryEntry(entry domain.TicketHistory, err error) error {
	domainErr := apperrors.NewDomainError(apperrors.CodeInternal, "stored history entry is unreadable", fiber.StatusInternalServerError, map[string]any{
		"entry_id":  entry.ID,
		"ticket_id": entry.TicketID,
	})
	domainErr.Err = fmt.Errorf("decode history entry %s: %w", entry.ID, err)
	return domainErr
}

// Suggestions GET /tickets/:id/suggestions. An unavailable suggestion
// service degrades to an empty list.
func (h *TicketsHandler) Suggestions(c *fiber.Ctx) error {
	sources, err := h.sources.SuggestedSources(c.UserContext(), c.Params("id"))
	if err != nil {
		if !errors.Is(err, apperrors.ErrSuggestionUnavailable) {
			return err
		}
		return c.JSON(fiber.Map{"data": ragSourceResponses(sources), "degraded": true})
	}
	return c.JSON(fiber.Map{"data": ragSourceResponses(sources)})
}

// GenerateDraft POST /tickets/:id/generate.
func (h *TicketsHandler) GenerateDraft(c *fiber.Ctx) error {
	var req dto.GenerateDraftRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return apperrors.NewValidationError("invalid payload", nil)
		}
	}
	result, err := h.drafts.Generate(c.UserContext(), c.Params("id"), trimDocuments(req.SelectedSources))
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

// EditDraft PUT /tickets/:id/draft.
func (h *TicketsHandler) EditDraft(c *fiber.Ctx) error {
	var req dto.EditDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ticket, err := h.drafts.EditDraft(c.UserContext(), c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketResponse(*ticket)})
}

// SendDraft POST /tickets/:id/send.
func (h *TicketsHandler) SendDraft(c *fiber.Ctx) error {
	result, err := h.drafts.Send(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

// OpenSession POST /tickets/:id/session.
func (h *TicketsHandler) OpenSession(c *fiber.Ctx) error {
	session, err := h.sources.OpenSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// GetSession GET /tickets/:id/session.
func (h *TicketsHandler) GetSession(c *fiber.Ctx) error {
	session, ok, err := h.sources.Session(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewNotFound("session", map[string]any{"ticket_id": c.Params("id")})
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// ToggleSource POST /tickets/:id/session/toggle.
func (h *TicketsHandler) ToggleSource(c *fiber.Ctx) error {
	var req dto.ToggleSourceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	session, err := h.sources.ToggleSource(c.UserContext(), c.Params("id"), req.Document)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(session)})
}

// CommitSession POST /tickets/:id/session/commit.
func (h *TicketsHandler) CommitSession(c *fiber.Ctx) error {
	result, err := h.sources.CommitSession(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return writeResult(c, result)
}

// DismissSession DELETE /tickets/:id/session.
func (h *TicketsHandler) DismissSession(c *fiber.Ctx) error {
	if err := h.sources.DismissSession(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func writeResult(c *fiber.Ctx, result service.Result) error {
	status := fiber.StatusOK
	if result.Outcome != service.OutcomeApplied {
		status = fiber.StatusAccepted
	}
	body := fiber.Map{"outcome": result.Outcome}
	if result.Ticket != nil {
		body["data"] = ticketResponse(*result.Ticket)
	}
	if result.AutoSendScheduled {
		body["auto_send_scheduled"] = true
	}
	return c.Status(status).JSON(body)
}

func parseStatuses(raw string) []domain.TicketStatus {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var statuses []domain.TicketStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			statuses = append(statuses, domain.TicketStatus(part))
		}
	}
	return statuses
}

func trimDocuments(docs []string) []string {
	out := make([]string, 0, len(docs))
	for _, doc := range docs {
		if doc = strings.TrimSpace(doc); doc != "" {
			out = append(out, doc)
		}
	}
	return out
}
