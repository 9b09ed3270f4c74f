package handlers

import (
	"github.com/spec-kit/draft-pipeline/internal/api/dto"
	"github.com/spec-kit/draft-pipeline/internal/clients"
	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/selection"
	"github.com/spec-kit/draft-pipeline/internal/service"
)

func ticketResponse(ticket domain.Ticket) dto.TicketResponse {
	resp := dto.TicketResponse{
		ID:        ticket.ID,
		Subject:   ticket.Subject,
		Customer:  ticket.Customer,
		Query:     ticket.Query,
		Status:    ticket.Status,
		Category:  ticket.Category,
		Sentiment: ticket.Sentiment,
		Urgency:   ticket.Urgency,
		SentAt:    ticket.SentAt,
		SentBy:    ticket.SentBy,
	}
	if ticket.Draft != nil {
		resp.Draft = &dto.DraftResponse{
			ID:               ticket.Draft.ID,
			Text:             ticket.Draft.Text,
			Confidence:       ticket.Draft.Confidence,
			NeedsHumanReview: ticket.Draft.NeedsHumanReview(),
			Critique:         ticket.Draft.Critique,
			GeneratedAt:      ticket.Draft.GeneratedAt,
			Sources:          ragSourceResponses(ticket.Draft.Sources),
		}
	}
	return resp
}

func ticketViewResponse(view service.TicketView) dto.TicketResponse {
	resp := ticketResponse(view.Ticket)
	resp.InFlight = &dto.InFlightResponse{
		Generating: view.InFlight.Generating,
		Sending:    view.InFlight.Sending,
	}
	if view.Session != nil {
		session := sessionResponse(*view.Session)
		resp.Session = &session
	}
	return resp
}

func ragSourceResponses(sources []domain.RAGSource) []dto.RAGSourceResponse {
	out := make([]dto.RAGSourceResponse, 0, len(sources))
	for _, src := range sources {
		out = append(out, dto.RAGSourceResponse{
			Document:       src.Document,
			Section:        src.Section,
			Category:       src.Category,
			Relevance:      src.Relevance,
			ContentPreview: src.ContentPreview,
		})
	}
	return out
}

// sessionResponse lists selected documents first, then suggested ones that
// were deselected.
func sessionResponse(session selection.Session) dto.SessionResponse {
	resp := dto.SessionResponse{
		TicketID:  session.TicketID,
		Selected:  append([]string{}, session.Selected...),
		Suggested: append([]string{}, session.Suggested...),
		Modified:  session.Modified(),
	}
	selected := make(map[string]struct{}, len(session.Selected))
	for _, doc := range session.Selected {
		selected[doc] = struct{}{}
		resp.Sources = append(resp.Sources, dto.SessionSourceResponse{
			Document:  doc,
			Selected:  true,
			Suggested: session.IsSuggested(doc),
		})
	}
	for _, doc := range session.Suggested {
		if _, ok := selected[doc]; ok {
			continue
		}
		resp.Sources = append(resp.Sources, dto.SessionSourceResponse{Document: doc, Suggested: true})
	}
	if resp.Sources == nil {
		resp.Sources = []dto.SessionSourceResponse{}
	}
	return resp
}

func knowledgeSourceResponses(sources []clients.KnowledgeSource) []dto.KnowledgeSourceResponse {
	out := make([]dto.KnowledgeSourceResponse, 0, len(sources))
	for _, src := range sources {
		sections := src.Sections
		if sections == nil {
			sections = []string{}
		}
		out = append(out, dto.KnowledgeSourceResponse{
			ID:          src.ID,
			Document:    src.Document,
			Category:    src.Category,
			Sections:    sections,
			TotalChunks: src.TotalChunks,
		})
	}
	return out
}
