package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spec-kit/draft-pipeline/internal/domain"
	apperrors "github.com/spec-kit/draft-pipeline/pkg/util/errorutil"
)

type stubHistory struct {
	entries []domain.TicketHistory
	err     error
}

func (s *stubHistory) Create(ctx context.Context, history *domain.TicketHistory) error {
	s.entries = append(s.entries, *history)
	return nil
}

func (s *stubHistory) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.TicketHistory
	for _, e := range s.entries {
		if e.TicketID == ticketID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestListTicketsFiltersByStatus(t *testing.T) {
	h := newHarness(t, &stubGenerator{result: draftResult("d", 0.5)})
	svc := NewTicketService(TicketDependencies{Tickets: h.store, Tracker: h.tracker, Sessions: h.sessions})
	ctx := context.Background()
	if _, err := h.drafts.Generate(ctx, "T-103", nil); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	all, err := svc.ListTickets(ctx, nil)
	if err != nil || len(all) != 4 {
		t.Fatalf("all = %d, %v", len(all), err)
	}
	ready, err := svc.ListTickets(ctx, []domain.TicketStatus{domain.TicketStatusDraftReady})
	if err != nil || len(ready) != 1 || ready[0].Ticket.ID != "T-103" {
		t.Fatalf("ready = %+v, %v", ready, err)
	}
}

func TestGetTicketIncludesTransientState(t *testing.T) {
	h := newHarness(t, &stubGenerator{})
	svc := NewTicketService(TicketDependencies{Tickets: h.store, Tracker: h.tracker, Sessions: h.sessions})
	h.tracker.TryBeginGenerating("T-101")
	defer h.tracker.EndGenerating("T-101")
	h.sessions.Open("T-101", []string{"a"})

	view, err := svc.GetTicket(context.Background(), "T-101")
	if err != nil {
		t.Fatalf("GetTicket: %v", err)
	}
	if !view.InFlight.Generating || view.Session == nil || view.Session.Selected[0] != "a" {
		t.Fatalf("view = %+v", view)
	}
	if _, err := svc.GetTicket(context.Background(), "nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestHistory(t *testing.T) {
	h := newHarness(t, &stubGenerator{})
	ctx := context.Background()

	disabled := NewTicketService(TicketDependencies{Tickets: h.store, Tracker: h.tracker, Sessions: h.sessions})
	if _, err := disabled.History(ctx, "T-101"); !errors.Is(err, ErrHistoryDisabled) {
		t.Fatalf("err = %v, want ErrHistoryDisabled", err)
	}

	store := &stubHistory{}
	_ = store.Create(ctx, &domain.TicketHistory{ID: "e1", TicketID: "T-101", EventType: "draft_generated", OccurredAt: time.Unix(1, 0)})
	_ = store.Create(ctx, &domain.TicketHistory{ID: "e2", TicketID: "T-102", EventType: "draft_generated", OccurredAt: time.Unix(2, 0)})
	svc := NewTicketService(TicketDependencies{Tickets: h.store, Tracker: h.tracker, Sessions: h.sessions, History: store})

	entries, err := svc.History(ctx, "T-101")
	if err != nil || len(entries) != 1 || entries[0].ID != "e1" {
		t.Fatalf("entries = %+v, %v", entries, err)
	}
	if _, err := svc.History(ctx, "T-999"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown ticket err = %v", err)
	}

	store.err = errors.New("connection refused")
	if _, err := svc.History(ctx, "T-101"); err == nil {
		t.Fatal("expected dependency error")
	}
}
