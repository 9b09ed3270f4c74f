package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrTerminal is returned by mutations applied to a ticket that was already sent.
	ErrTerminal = errors.New("ticket already sent")
	// ErrNoDraft is returned by mutations that need a draft on a ticket without one.
	ErrNoDraft = errors.New("ticket has no draft")
	// ErrNotDraftReady is returned when the ticket left Draft Ready before commit.
	ErrNotDraftReady = errors.New("ticket is not draft ready")
	// ErrDraftReplaced is returned when the draft an operation was scheduled
	// for has been regenerated since.
	ErrDraftReplaced = errors.New("draft was replaced")
	// ErrInvariant marks a mutation result that breaks a ticket invariant.
	ErrInvariant = errors.New("ticket invariant violated")
)

// Mutation rewrites a private copy of a ticket. Returning an error discards the copy.
type Mutation func(t *Ticket) error

// Classification carries the generation metadata written alongside a draft.
// A nil Category leaves the ticket's category unchanged.
type Classification struct {
	Category  *string
	Sentiment Sentiment
	Urgency   Urgency
}

// AttachDraft replaces the draft wholesale and moves the ticket to Draft Ready.
func AttachDraft(draft Draft, class Classification) Mutation {
	return func(t *Ticket) error {
		if t.Status.IsTerminal() {
			return ErrTerminal
		}
		d := draft.Clone()
		t.Draft = &d
		t.Status = TicketStatusDraftReady
		if class.Category != nil {
			c := *class.Category
			t.Category = &c
		}
		sentiment, urgency := class.Sentiment, class.Urgency
		t.Sentiment = &sentiment
		t.Urgency = &urgency
		return nil
	}
}

// ReplaceDraftText swaps only the draft text.
func ReplaceDraftText(text string) Mutation {
	return func(t *Ticket) error {
		if t.Draft == nil {
			return ErrNoDraft
		}
		if t.Status != TicketStatusDraftReady {
			return ErrNotDraftReady
		}
		t.Draft.Text = text
		return nil
	}
}

// MarkSent commits a send. status must be Sent or Auto-Sent.
func MarkSent(status TicketStatus, by Sender, at time.Time) Mutation {
	return func(t *Ticket) error {
		if !status.IsTerminal() {
			return fmt.Errorf("%w: %q is not a sent status", ErrInvariant, status)
		}
		if t.Status.IsTerminal() {
			return ErrTerminal
		}
		if t.Draft == nil {
			return ErrNoDraft
		}
		if t.Status != TicketStatusDraftReady {
			return ErrNotDraftReady
		}
		sentAt, sentBy := at, by
		t.Status = status
		t.SentAt = &sentAt
		t.SentBy = &sentBy
		return nil
	}
}

// MarkAutoSent commits an auto-send of the draft identified by draftID. A
// ticket whose draft has since been regenerated is left untouched.
func MarkAutoSent(draftID string, at time.Time) Mutation {
	send := MarkSent(TicketStatusAutoSent, SenderAI, at)
	return func(t *Ticket) error {
		if t.Draft != nil && !t.Status.IsTerminal() && t.Draft.ID != draftID {
			return ErrDraftReplaced
		}
		return send(t)
	}
}

func invariantError(id, format string, args ...any) error {
	return fmt.Errorf("%w: ticket %s: %s", ErrInvariant, id, fmt.Sprintf(format, args...))
}
