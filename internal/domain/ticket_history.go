package domain

import (
	"encoding/json"
	"time"
)

// TicketHistory is one persisted lifecycle event for a ticket.
type TicketHistory struct {
	ID         string          `json:"id"`
	TicketID   string          `json:"ticket_id"`
	EventType  string          `json:"event_type"`
	Actor      Sender          `json:"actor"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
	RecordedAt time.Time       `json:"recorded_at"`
}
