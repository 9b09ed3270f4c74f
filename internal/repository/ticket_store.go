package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/spec-kit/draft-pipeline/internal/domain"
	apperrors "github.com/spec-kit/draft-pipeline/pkg/util/errorutil"
)

// TicketStore is the authoritative in-memory ticket collection.
type TicketStore interface {
	Get(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context) ([]domain.Ticket, error)
	Apply(ctx context.Context, id string, mutation domain.Mutation) (*domain.Ticket, error)
}

type ticketEntry struct {
	mu     sync.RWMutex
	ticket domain.Ticket
}

type ticketStore struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*ticketEntry
}

// NewTicketStore seeds a store. Duplicate or invalid seeds are rejected.
func NewTicketStore(seed []domain.Ticket) (TicketStore, error) {
	store := &ticketStore{
		order:   make([]string, 0, len(seed)),
		entries: make(map[string]*ticketEntry, len(seed)),
	}
	for _, ticket := range seed {
		if ticket.ID == "" {
			return nil, apperrors.NewValidationError("ticket id required", nil)
		}
		if _, exists := store.entries[ticket.ID]; exists {
			return nil, apperrors.NewValidationError("duplicate ticket id", map[string]any{"ticket_id": ticket.ID})
		}
		if err := ticket.Validate(); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"ticket_id": ticket.ID})
		}
		store.order = append(store.order, ticket.ID)
		store.entries[ticket.ID] = &ticketEntry{ticket: ticket.Clone()}
	}
	return store, nil
}

func (s *ticketStore) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.RLock()
	defer entry.mu.RUnlock()
	ticket := entry.ticket.Clone()
	return &ticket, nil
}

func (s *ticketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	s.mu.RLock()
	entries := make([]*ticketEntry, 0, len(s.order))
	for _, id := range s.order {
		entries = append(entries, s.entries[id])
	}
	s.mu.RUnlock()

	tickets := make([]domain.Ticket, 0, len(entries))
	for _, entry := range entries {
		entry.mu.RLock()
		tickets = append(tickets, entry.ticket.Clone())
		entry.mu.RUnlock()
	}
	return tickets, nil
}

// Apply runs mutation against a copy under the ticket's write lock and commits
// the copy only when the mutation succeeds and the invariants still hold.
func (s *ticketStore) Apply(ctx context.Context, id string, mutation domain.Mutation) (*domain.Ticket, error) {
	entry, err := s.entry(id)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.ticket.Clone()
	if err := mutation(&working); err != nil {
		return nil, err
	}
	if working.ID != id {
		return nil, fmt.Errorf("%w: mutation changed ticket id", domain.ErrInvariant)
	}
	if err := working.Validate(); err != nil {
		return nil, err
	}
	entry.ticket = working
	committed := working.Clone()
	return &committed, nil
}

func (s *ticketStore) entry(id string) (*ticketEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"ticket_id": id})
	}
	return entry, nil
}
