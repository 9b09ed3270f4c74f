package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/draft-pipeline/internal/config"
	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/events"
)

// Notifier delivers an operator notification.
type Notifier interface {
	Post(ctx context.Context, payload any) error
}

// NotificationKind names why operators are being told about a ticket.
type NotificationKind string

const (
	NotificationNeedsReview      NotificationKind = "needs_review"
	NotificationGenerationFailed NotificationKind = "generation_failed"
	NotificationTicketSent       NotificationKind = "ticket_sent"
)

// Notification is the webhook body.
type Notification struct {
	Kind       NotificationKind    `json:"kind"`
	TicketID   string              `json:"ticket_id"`
	EventID    string              `json:"event_id"`
	Actor      domain.Sender       `json:"actor,omitempty"`
	Confidence float64             `json:"confidence,omitempty"`
	Reason     string              `json:"reason,omitempty"`
	Status     domain.TicketStatus `json:"status,omitempty"`
	OccurredAt time.Time           `json:"occurred_at"`
}

// NotificationService turns lifecycle events into operator notifications:
// drafts needing review, failed generations and sent replies.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	notifier   Notifier
	timeout    time.Duration
	wg         sync.WaitGroup
}

// NewNotificationService creates the service. A nil notifier only logs.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, notifier Notifier, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		notifier:   notifier,
		timeout:    cfg.Timeout,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventDraftGenerated, n.handleDraftGenerated)
	n.dispatcher.Subscribe(events.EventGenerationFailed, n.handleGenerationFailed)
	n.dispatcher.Subscribe(events.EventTicketSent, n.handleTicketSent)
}

// Wait blocks until every notification handed to the notifier has finished.
func (n *NotificationService) Wait() {
	n.wg.Wait()
}

func (n *NotificationService) handleDraftGenerated(_ context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.DraftGeneratedPayload)
	if !ok || !payload.NeedsHumanReview {
		return nil
	}
	n.logger.Info("draft needs review", zap.String("ticket_id", event.TicketID), zap.Float64("confidence", payload.Confidence))
	note := notificationFor(NotificationNeedsReview, event)
	note.Confidence = payload.Confidence
	n.deliver(note)
	return nil
}

func (n *NotificationService) handleGenerationFailed(_ context.Context, event events.Event) error {
	note := notificationFor(NotificationGenerationFailed, event)
	if payload, ok := event.Payload.(events.GenerationFailedPayload); ok {
		note.Reason = payload.Reason
	}
	n.logger.Info("generation failed", zap.String("ticket_id", event.TicketID), zap.String("reason", note.Reason))
	n.deliver(note)
	return nil
}

func (n *NotificationService) handleTicketSent(_ context.Context, event events.Event) error {
	note := notificationFor(NotificationTicketSent, event)
	if payload, ok := event.Payload.(events.TicketSentPayload); ok {
		note.Status = payload.Status
	}
	n.logger.Info("ticket sent", zap.String("ticket_id", event.TicketID), zap.String("sent_by", string(event.Actor.Type)))
	n.deliver(note)
	return nil
}

// deliver posts off the publisher's goroutine so a slow webhook never delays
// the lifecycle operation that raised the event.
func (n *NotificationService) deliver(note Notification) {
	if n.notifier == nil {
		return
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx := context.Background()
		if n.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, n.timeout)
			defer cancel()
		}
		if err := n.notifier.Post(ctx, note); err != nil {
			n.logger.Warn("notification delivery failed",
				zap.String("ticket_id", note.TicketID),
				zap.String("kind", string(note.Kind)),
				zap.Error(err))
		}
	}()
}

func notificationFor(kind NotificationKind, event events.Event) Notification {
	return Notification{
		Kind:       kind,
		TicketID:   event.TicketID,
		EventID:    event.ID,
		Actor:      event.Actor.Type,
		OccurredAt: event.Timestamp,
	}
}
