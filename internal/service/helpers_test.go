package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/draft-pipeline/internal/clients"
	"github.com/spec-kit/draft-pipeline/internal/clock"
	"github.com/spec-kit/draft-pipeline/internal/config"
	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/events"
	"github.com/spec-kit/draft-pipeline/internal/inflight"
	"github.com/spec-kit/draft-pipeline/internal/observability"
	"github.com/spec-kit/draft-pipeline/internal/repository"
	"github.com/spec-kit/draft-pipeline/internal/seed"
	"github.com/spec-kit/draft-pipeline/internal/selection"
)

var epoch = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

// stubGenerator answers with a fixed result, or blocks until released when gate is set.
type stubGenerator struct {
	mu       sync.Mutex
	result   clients.DraftResult
	err      error
	calls    int
	selected [][]string
	started  chan struct{}
	gate     chan struct{}
}

func (g *stubGenerator) GenerateDraft(ctx context.Context, query string, selected []string) (clients.DraftResult, error) {
	g.mu.Lock()
	g.calls++
	g.selected = append(g.selected, append([]string(nil), selected...))
	result, err, gate, started := g.result, g.err, g.gate, g.started
	g.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return result, err
}

func (g *stubGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func draftResult(text string, confidence float64, docs ...string) clients.DraftResult {
	c := confidence
	result := clients.DraftResult{Text: text, Confidence: &c, Sources: []domain.RAGSource{}}
	for _, doc := range docs {
		result.Sources = append(result.Sources, domain.RAGSource{Document: doc, Relevance: 0.8})
	}
	return result
}

// eventLog records published event types.
type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) handle(_ context.Context, event events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func (l *eventLog) count(eventType events.EventType) int {
	n := 0
	for _, t := range l.types() {
		if t == eventType {
			n++
		}
	}
	return n
}

type harness struct {
	store     repository.TicketStore
	tracker   *inflight.Tracker
	sessions  *selection.Manager
	generator *stubGenerator
	clock     *clock.FakeClock
	metrics   *observability.Metrics
	events    *eventLog
	logs      *observer.ObservedLogs
	drafts    *DraftService
}

func newHarness(t *testing.T, generator *stubGenerator) *harness {
	t.Helper()
	store, err := repository.NewTicketStore(seed.Default())
	if err != nil {
		t.Fatalf("NewTicketStore: %v", err)
	}
	core, logs := observer.New(zap.DebugLevel)
	h := &harness{
		store:     store,
		tracker:   inflight.NewTracker(),
		sessions:  selection.NewManager(),
		generator: generator,
		clock:     clock.Fake(epoch),
		metrics:   observability.NewMetrics(),
		events:    &eventLog{},
		logs:      logs,
	}
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.SubscribeAll(h.events.handle)
	h.drafts = NewDraftService(DraftDependencies{
		Tickets:    store,
		Tracker:    h.tracker,
		Sessions:   h.sessions,
		Generator:  generator,
		Dispatcher: dispatcher,
		Metrics:    h.metrics,
		Clock:      h.clock,
		Policy:     config.DefaultPipeline(),
		Logger:     zap.New(core),
	})
	t.Cleanup(h.drafts.Close)
	return h
}

func (h *harness) ticket(t *testing.T, id string) *domain.Ticket {
	t.Helper()
	ticket, err := h.store.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return ticket
}

// runAutoSend advances through the auto-send delay and latency.
func (h *harness) runAutoSend() {
	h.clock.WaitForTimers(1)
	h.clock.Advance(1500 * time.Millisecond)
	h.clock.WaitForTimers(1)
	h.clock.Advance(time.Second)
	h.drafts.Wait()
}

func draftResultWithoutMetadata(text string) clients.DraftResult {
	return clients.DraftResult{Text: text, Sources: []domain.RAGSource{}}
}
