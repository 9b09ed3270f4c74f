package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "Open"
	TicketStatusDraftReady TicketStatus = "Draft Ready"
	TicketStatusSent       TicketStatus = "Sent"
	TicketStatusAutoSent   TicketStatus = "Auto-Sent"
)

// IsTerminal reports whether no further transition is defined from s.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusSent || s == TicketStatusAutoSent
}

// HasDraft reports whether a ticket in status s must carry a draft.
func (s TicketStatus) HasDraft() bool {
	return s == TicketStatusDraftReady || s.IsTerminal()
}

// Sentiment is the classified tone of the customer query.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNeutral  Sentiment = "Neutral"
	SentimentNegative Sentiment = "Negative"
)

// Urgency is the classified priority of the customer query.
type Urgency string

const (
	UrgencyLow      Urgency = "Low"
	UrgencyMedium   Urgency = "Medium"
	UrgencyHigh     Urgency = "High"
	UrgencyCritical Urgency = "Critical"
)

// ParseSentiment returns the sentiment for label, or false when unknown.
func ParseSentiment(label string) (Sentiment, bool) {
	switch s := Sentiment(label); s {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return s, true
	}
	return "", false
}

// ParseUrgency returns the urgency for label, or false when unknown.
func ParseUrgency(label string) (Urgency, bool) {
	switch u := Urgency(label); u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return u, true
	}
	return "", false
}

// Sender identifies who sent a reply.
type Sender string

const (
	SenderHuman Sender = "human"
	SenderAI    Sender = "ai"
)

// Ticket is the aggregate for support requests moving through the draft pipeline.
type Ticket struct {
	ID        string
	Subject   string
	Customer  string
	Query     string
	Status    TicketStatus
	Category  *string
	Sentiment *Sentiment
	Urgency   *Urgency
	Draft     *Draft
	SentAt    *time.Time
	SentBy    *Sender
}

// NewTicket returns an Open ticket without a draft.
func NewTicket(id, subject, customer, query string) Ticket {
	return Ticket{
		ID:       id,
		Subject:  subject,
		Customer: customer,
		Query:    query,
		Status:   TicketStatusOpen,
	}
}

// Clone returns a deep copy so callers never share mutable state with the store.
func (t Ticket) Clone() Ticket {
	out := t
	if t.Category != nil {
		v := *t.Category
		out.Category = &v
	}
	if t.Sentiment != nil {
		v := *t.Sentiment
		out.Sentiment = &v
	}
	if t.Urgency != nil {
		v := *t.Urgency
		out.Urgency = &v
	}
	if t.Draft != nil {
		d := t.Draft.Clone()
		out.Draft = &d
	}
	if t.SentAt != nil {
		v := *t.SentAt
		out.SentAt = &v
	}
	if t.SentBy != nil {
		v := *t.SentBy
		out.SentBy = &v
	}
	return out
}

// Validate checks the status-linked invariants.
func (t Ticket) Validate() error {
	switch t.Status {
	case TicketStatusOpen, TicketStatusDraftReady, TicketStatusSent, TicketStatusAutoSent:
	default:
		return invariantError(t.ID, "unknown status %q", t.Status)
	}
	if t.Status.HasDraft() != (t.Draft != nil) {
		return invariantError(t.ID, "draft presence does not match status %q", t.Status)
	}
	sent := t.SentAt != nil && t.SentBy != nil
	partial := (t.SentAt != nil) != (t.SentBy != nil)
	if partial || t.Status.IsTerminal() != sent {
		return invariantError(t.ID, "sent fields do not match status %q", t.Status)
	}
	if t.Draft != nil && (t.Draft.Confidence < 0 || t.Draft.Confidence > 1) {
		return invariantError(t.ID, "confidence %v outside [0,1]", t.Draft.Confidence)
	}
	return nil
}
