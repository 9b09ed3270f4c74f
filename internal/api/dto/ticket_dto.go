package dto

import (
	"time"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

// GenerateDraftRequest payload. An empty selection means unscoped retrieval.
type GenerateDraftRequest struct {
	SelectedSources []string `json:"selected_sources"`
}

// EditDraftRequest payload.
type EditDraftRequest struct {
	Text string `json:"text"`
}

// ToggleSourceRequest payload.
type ToggleSourceRequest struct {
	Document string `json:"document"`
}

// RAGSourceResponse describes a knowledge section used or suggested for a draft.
type RAGSourceResponse struct {
	Document       string  `json:"document"`
	Section        string  `json:"section"`
	Category       string  `json:"category"`
	Relevance      float64 `json:"relevance"`
	ContentPreview string  `json:"content_preview,omitempty"`
}

// DraftResponse representation.
type DraftResponse struct {
	ID               string              `json:"id"`
	Text             string              `json:"text"`
	Confidence       float64             `json:"confidence"`
	NeedsHumanReview bool                `json:"needs_human_review"`
	Critique         string              `json:"critique,omitempty"`
	GeneratedAt      time.Time           `json:"generated_at"`
	Sources          []RAGSourceResponse `json:"sources"`
}

// InFlightResponse exposes the operations currently running for a ticket.
type InFlightResponse struct {
	Generating bool `json:"generating"`
	Sending    bool `json:"sending"`
}

// TicketResponse is the full ticket representation.
type TicketResponse struct {
	ID        string              `json:"id"`
	Subject   string              `json:"subject"`
	Customer  string              `json:"customer"`
	Query     string              `json:"query"`
	Status    domain.TicketStatus `json:"status"`
	Category  *string             `json:"category"`
	Sentiment *domain.Sentiment   `json:"sentiment"`
	Urgency   *domain.Urgency     `json:"urgency"`
	Draft     *DraftResponse      `json:"draft"`
	SentAt    *time.Time          `json:"sent_at"`
	SentBy    *domain.Sender      `json:"sent_by"`
	InFlight  *InFlightResponse   `json:"in_flight,omitempty"`
	Session   *SessionResponse    `json:"session,omitempty"`
}

// SessionSourceResponse is one document row in a selection session.
type SessionSourceResponse struct {
	Document  string `json:"document"`
	Selected  bool   `json:"selected"`
	Suggested bool   `json:"suggested"`
}

// SessionResponse representation.
type SessionResponse struct {
	TicketID  string                  `json:"ticket_id"`
	Selected  []string                `json:"selected"`
	Suggested []string                `json:"suggested"`
	Modified  bool                    `json:"modified"`
	Sources   []SessionSourceResponse `json:"sources"`
}

// KnowledgeSourceResponse is one catalog entry.
type KnowledgeSourceResponse struct {
	ID          string   `json:"id"`
	Document    string   `json:"document"`
	Category    string   `json:"category"`
	Sections    []string `json:"sections"`
	TotalChunks int      `json:"total_chunks"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID         string         `json:"id"`
	EventType  string         `json:"event_type"`
	Actor      domain.Sender  `json:"actor"`
	Payload    map[string]any `json:"payload"`
	OccurredAt time.Time      `json:"occurred_at"`
}
