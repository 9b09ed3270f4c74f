package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/draft-pipeline/internal/events"
	"github.com/spec-kit/draft-pipeline/internal/observability"
)

const (
	defaultRelayBuffer = 256
	deliveryTimeout    = 5 * time.Second
)

// Sink receives encoded lifecycle events from the relay.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, event events.Event, body []byte) error
}

// EventRelay forwards dispatched events to external sinks off the request
// path. A full queue drops the event rather than stalling the pipeline.
type EventRelay struct {
	sinks   []Sink
	logger  *zap.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	queue   chan events.Event
	started bool
	stopped bool
	done    chan struct{}
}

// NewEventRelay builds a relay. Sinks are delivered to in the given order.
func NewEventRelay(buffer int, logger *zap.Logger, metrics *observability.Metrics, sinks ...Sink) *EventRelay {
	if buffer <= 0 {
		buffer = defaultRelayBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRelay{
		sinks:   sinks,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan events.Event, buffer),
		done:    make(chan struct{}),
	}
}

// Register subscribes the relay to every lifecycle event type.
func (r *EventRelay) Register(dispatcher events.Dispatcher) {
	dispatcher.SubscribeAll(r.Enqueue)
}

// Enqueue hands an event to the relay without blocking.
func (r *EventRelay) Enqueue(_ context.Context, event events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return nil
	}
	select {
	case r.queue <- event:
	default:
		r.metrics.RecordOperation("relay", "dropped")
		r.logger.Warn("event relay queue full; dropping event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Start launches the delivery loop. Calling it twice has no effect.
func (r *EventRelay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.stopped {
		return
	}
	r.started = true
	go r.run()
}

// Stop stops accepting events and waits for queued ones to drain or ctx to end.
func (r *EventRelay) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	close(r.queue)
	started := r.started
	r.mu.Unlock()

	if !started {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *EventRelay) run() {
	defer close(r.done)
	for event := range r.queue {
		r.deliver(event)
	}
}

func (r *EventRelay) deliver(event events.Event) {
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Error("encode event", zap.String("event_id", event.ID), zap.Error(err))
		return
	}
	for _, sink := range r.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		err := sink.Deliver(ctx, event, body)
		cancel()
		if err != nil {
			r.metrics.RecordOperation("relay_"+sink.Name(), "failed")
			r.logger.Warn("event delivery failed",
				zap.String("sink", sink.Name()),
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.Error(err))
			continue
		}
		r.metrics.RecordOperation("relay_"+sink.Name(), "delivered")
	}
}
