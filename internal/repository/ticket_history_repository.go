package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

// TicketHistoryRepository stores the lifecycle audit trail.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewTicketHistoryRepository builds repository.
func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

// Create inserts the entry. Replays of the same event id are ignored.
func (r *ticketHistoryRepository) Create(ctx context.Context, history *domain.TicketHistory) error {
	const query = `
        INSERT INTO ticket_events (id, ticket_id, event_type, actor, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6)
        ON CONFLICT (id) DO NOTHING
        RETURNING recorded_at`
	payload := history.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	err := r.pool.QueryRow(ctx, query,
		history.ID,
		history.TicketID,
		history.EventType,
		string(history.Actor),
		payload,
		history.OccurredAt,
	).Scan(&history.RecordedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}

func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	const query = `
        SELECT id, ticket_id, event_type, actor, payload, occurred_at, recorded_at
        FROM ticket_events WHERE ticket_id=$1 ORDER BY occurred_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.TicketHistory{}
	for rows.Next() {
		var (
			history domain.TicketHistory
			actor   string
		)
		if err := rows.Scan(
			&history.ID,
			&history.TicketID,
			&history.EventType,
			&actor,
			&history.Payload,
			&history.OccurredAt,
			&history.RecordedAt,
		); err != nil {
			return nil, err
		}
		history.Actor = domain.Sender(actor)
		result = append(result, history)
	}
	return result, rows.Err()
}
