package service

import (
	"context"
	"errors"

	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/inflight"
	"github.com/spec-kit/draft-pipeline/internal/repository"
	"github.com/spec-kit/draft-pipeline/internal/selection"
	apperrors "github.com/spec-kit/draft-pipeline/pkg/util/errorutil"
)

// ErrHistoryDisabled is returned when no audit store is configured.
var ErrHistoryDisabled = errors.New("audit log not configured")

// TicketView is a ticket plus its transient pipeline state.
type TicketView struct {
	Ticket   domain.Ticket
	InFlight inflight.State
	Session  *selection.Session
}

// TicketService serves read-only ticket queries.
type TicketService struct {
	tickets  repository.TicketStore
	tracker  *inflight.Tracker
	sessions *selection.Manager
	history  repository.TicketHistoryRepository
}

// TicketDependencies bundles collaborators for ticket queries.
type TicketDependencies struct {
	Tickets  repository.TicketStore
	Tracker  *inflight.Tracker
	Sessions *selection.Manager
	// History is optional; nil disables the audit trail endpoint.
	History repository.TicketHistoryRepository
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:  deps.Tickets,
		tracker:  deps.Tracker,
		sessions: deps.Sessions,
		history:  deps.History,
	}
}

// ListTickets returns every ticket in seed order.
func (s *TicketService) ListTickets(ctx context.Context, statuses []domain.TicketStatus) ([]TicketView, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]TicketView, 0, len(tickets))
	for _, ticket := range tickets {
		if !statusMatches(ticket.Status, statuses) {
			continue
		}
		views = append(views, s.view(ticket))
	}
	return views, nil
}

// GetTicket returns one ticket.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (TicketView, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return TicketView{}, err
	}
	return s.view(*ticket), nil
}

// History returns the persisted lifecycle events for a ticket, oldest first.
func (s *TicketService) History(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, apperrors.NewDependencyUnavailable("audit log", ErrHistoryDisabled)
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.NewDependencyUnavailable("audit log", err)
	}
	return entries, nil
}

func (s *TicketService) view(ticket domain.Ticket) TicketView {
	v := TicketView{Ticket: ticket, InFlight: s.tracker.State(ticket.ID)}
	if session, ok := s.sessions.Get(ticket.ID); ok {
		v.Session = &session
	}
	return v
}

func statusMatches(status domain.TicketStatus, allowed []domain.TicketStatus) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == status {
			return true
		}
	}
	return false
}
