package worker

import (
	"context"
	"encoding/json"

	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/events"
	"github.com/spec-kit/draft-pipeline/internal/persistence"
	"github.com/spec-kit/draft-pipeline/internal/repository"
)

// RoutingKey is the topic key an event is published under.
func RoutingKey(event events.Event) string {
	return "ticket." + string(event.Type)
}

type redisSink struct {
	redis *persistence.Redis
}

// NewRedisSink publishes events on the configured Redis channel.
func NewRedisSink(redis *persistence.Redis) Sink {
	return &redisSink{redis: redis}
}

func (s *redisSink) Name() string { return "redis" }

func (s *redisSink) Deliver(ctx context.Context, _ events.Event, body []byte) error {
	return s.redis.Publish(ctx, body)
}

type amqpSink struct {
	broker *persistence.AMQP
}

// NewAMQPSink publishes events to the RabbitMQ topic exchange.
func NewAMQPSink(broker *persistence.AMQP) Sink {
	return &amqpSink{broker: broker}
}

func (s *amqpSink) Name() string { return "amqp" }

func (s *amqpSink) Deliver(ctx context.Context, event events.Event, body []byte) error {
	return s.broker.Publish(ctx, RoutingKey(event), event.ID, body)
}

type historySink struct {
	history repository.TicketHistoryRepository
}

// NewHistorySink appends events to the Postgres audit trail.
func NewHistorySink(history repository.TicketHistoryRepository) Sink {
	return &historySink{history: history}
}

func (s *historySink) Name() string { return "postgres" }

func (s *historySink) Deliver(ctx context.Context, event events.Event, _ []byte) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}
	entry := &domain.TicketHistory{
		ID:         event.ID,
		TicketID:   event.TicketID,
		EventType:  string(event.Type),
		Actor:      event.Actor.Type,
		Payload:    payload,
		OccurredAt: event.Timestamp,
	}
	return s.history.Create(ctx, entry)
}
