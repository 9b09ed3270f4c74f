package events

import (
	"time"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDraftGenerated    EventType = "draft_generated"
	EventGenerationFailed  EventType = "generation_failed"
	EventDraftEdited       EventType = "draft_edited"
	EventAutoSendScheduled EventType = "auto_send_scheduled"
	EventTicketSent        EventType = "ticket_sent"
)

// AllEventTypes lists every type in publication order of a typical lifecycle.
var AllEventTypes = []EventType{
	EventDraftGenerated,
	EventGenerationFailed,
	EventDraftEdited,
	EventAutoSendScheduled,
	EventTicketSent,
}

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type domain.Sender `json:"type"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketID  string    `json:"ticket_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// DraftGeneratedPayload payload.
type DraftGeneratedPayload struct {
	OldStatus        domain.TicketStatus `json:"old_status"`
	Confidence       float64             `json:"confidence"`
	NeedsHumanReview bool                `json:"needs_human_review"`
	SelectedSources  []string            `json:"selected_sources,omitempty"`
	UsedSources      []string            `json:"used_sources"`
}

// GenerationFailedPayload payload.
type GenerationFailedPayload struct {
	Reason string `json:"reason"`
}

// DraftEditedPayload payload.
type DraftEditedPayload struct {
	TextPreview string `json:"text_preview"`
}

// AutoSendScheduledPayload payload.
type AutoSendScheduledPayload struct {
	Confidence float64       `json:"confidence"`
	Delay      time.Duration `json:"delay_ns"`
}

// TicketSentPayload payload.
type TicketSentPayload struct {
	Status domain.TicketStatus `json:"status"`
	SentAt time.Time           `json:"sent_at"`
}
