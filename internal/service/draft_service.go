package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/draft-pipeline/internal/clients"
	"github.com/spec-kit/draft-pipeline/internal/clock"
	"github.com/spec-kit/draft-pipeline/internal/config"
	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/events"
	"github.com/spec-kit/draft-pipeline/internal/inflight"
	"github.com/spec-kit/draft-pipeline/internal/observability"
	"github.com/spec-kit/draft-pipeline/internal/repository"
	"github.com/spec-kit/draft-pipeline/internal/selection"
	apperrors "github.com/spec-kit/draft-pipeline/pkg/util/errorutil"
)

// Defaults applied when the generation service omits metadata.
const (
	DefaultConfidence = 0.85
	DefaultSentiment  = domain.SentimentNeutral
	DefaultUrgency    = domain.UrgencyMedium
)

// Operation names used for metrics and logs.
const (
	opGenerate = "generate"
	opSend     = "send"
	opAutoSend = "auto_send"
	opEdit     = "edit"
)

// DraftGenerator produces draft replies.
type DraftGenerator interface {
	GenerateDraft(ctx context.Context, query string, selected []string) (clients.DraftResult, error)
}

// Outcome tells the caller whether an operation changed the ticket.
type Outcome string

const (
	OutcomeApplied          Outcome = "applied"
	OutcomeIgnoredDuplicate Outcome = "ignored_duplicate"
	OutcomeIgnoredTerminal  Outcome = "ignored_terminal"
)

// Result is returned by lifecycle operations.
type Result struct {
	Ticket            *domain.Ticket
	Outcome           Outcome
	AutoSendScheduled bool
}

// DraftService drives tickets through Open, Draft Ready, Sent and Auto-Sent.
type DraftService struct {
	tickets    repository.TicketStore
	tracker    *inflight.Tracker
	sessions   *selection.Manager
	generator  DraftGenerator
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	clock      clock.Clock
	policy     config.PipelineConfig
	logger     *zap.Logger

	mu        sync.Mutex
	closed    bool
	nextTimer uint64
	pending   map[uint64]clock.Timer
	bg        sync.WaitGroup
}

// DraftDependencies bundles collaborators for the draft service.
type DraftDependencies struct {
	Tickets    repository.TicketStore
	Tracker    *inflight.Tracker
	Sessions   *selection.Manager
	Generator  DraftGenerator
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Clock      clock.Clock
	Policy     config.PipelineConfig
	Logger     *zap.Logger
}

// NewDraftService constructs the service.
func NewDraftService(deps DraftDependencies) *DraftService {
	s := &DraftService{
		tickets:    deps.Tickets,
		tracker:    deps.Tracker,
		sessions:   deps.Sessions,
		generator:  deps.Generator,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		policy:     deps.Policy,
		logger:     deps.Logger,
		pending:    make(map[uint64]clock.Timer),
	}
	if s.tracker == nil {
		s.tracker = inflight.NewTracker()
	}
	if s.sessions == nil {
		s.sessions = selection.NewManager()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Generate drafts a reply for the ticket, optionally scoped to selected
// documents. A second call while one is in flight is ignored.
func (s *DraftService) Generate(ctx context.Context, ticketID string, selected []string) (Result, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return Result{}, err
	}
	if ticket.Status.IsTerminal() {
		return s.ignored(opGenerate, ticket, OutcomeIgnoredTerminal), nil
	}
	if !s.tracker.TryBeginGenerating(ticketID) {
		return s.ignored(opGenerate, ticket, OutcomeIgnoredDuplicate), nil
	}
	defer s.tracker.EndGenerating(ticketID)

	resp, err := s.generator.GenerateDraft(ctx, ticket.Query, selected)
	if err != nil {
		s.metrics.RecordOperation(opGenerate, "failed")
		s.logger.Warn("draft generation failed", zap.String("ticket_id", ticketID), zap.Error(err))
		s.publishEvent(ctx, events.Event{
			Type:     events.EventGenerationFailed,
			TicketID: ticketID,
			Actor:    aiActor(),
			Payload:  events.GenerationFailedPayload{Reason: err.Error()},
		})
		return Result{Ticket: ticket}, apperrors.NewGenerationFailed(err)
	}

	draft, class := s.draftFromResult(resp)
	updated, err := s.tickets.Apply(ctx, ticketID, domain.AttachDraft(draft, class))
	if errors.Is(err, domain.ErrTerminal) {
		current, getErr := s.tickets.Get(ctx, ticketID)
		if getErr != nil {
			return Result{}, getErr
		}
		return s.ignored(opGenerate, current, OutcomeIgnoredTerminal), nil
	}
	if err != nil {
		s.metrics.RecordOperation(opGenerate, "failed")
		return Result{Ticket: ticket}, apperrors.NewGenerationFailed(err)
	}

	s.sessions.Discard(ticketID)
	s.metrics.RecordOperation(opGenerate, string(OutcomeApplied))
	s.logger.Info("draft generated",
		zap.String("ticket_id", ticketID),
		zap.Float64("confidence", draft.Confidence),
		zap.Bool("needs_human_review", draft.NeedsHumanReview()),
		zap.Strings("selected_sources", selected))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventDraftGenerated,
		TicketID: ticketID,
		Actor:    aiActor(),
		Payload: events.DraftGeneratedPayload{
			OldStatus:        ticket.Status,
			Confidence:       draft.Confidence,
			NeedsHumanReview: draft.NeedsHumanReview(),
			SelectedSources:  selected,
			UsedSources:      draft.Documents(),
		},
	})

	scheduled := false
	if draft.Confidence >= s.policy.AutoSendThreshold {
		scheduled = s.scheduleAutoSend(ctx, ticketID, draft.ID, draft.Confidence)
	}
	return Result{Ticket: updated, Outcome: OutcomeApplied, AutoSendScheduled: scheduled}, nil
}

// Send delivers the draft on behalf of a human reviewer after the send latency.
func (s *DraftService) Send(ctx context.Context, ticketID string) (Result, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return Result{}, err
	}
	if ticket.Status.IsTerminal() {
		return s.ignored(opSend, ticket, OutcomeIgnoredTerminal), nil
	}
	if ticket.Draft == nil {
		return Result{}, apperrors.NewInvalidState("ticket has no draft to send", map[string]any{"ticket_id": ticketID})
	}
	if !s.tracker.TryBeginSending(ticketID) {
		return s.ignored(opSend, ticket, OutcomeIgnoredDuplicate), nil
	}
	defer s.tracker.EndSending(ticketID)

	s.clock.Sleep(s.policy.SendLatency)

	updated, err := s.tickets.Apply(ctx, ticketID, domain.MarkSent(domain.TicketStatusSent, domain.SenderHuman, s.clock.Now()))
	switch {
	case errors.Is(err, domain.ErrTerminal):
		current, getErr := s.tickets.Get(ctx, ticketID)
		if getErr != nil {
			return Result{}, getErr
		}
		return s.ignored(opSend, current, OutcomeIgnoredTerminal), nil
	case errors.Is(err, domain.ErrNoDraft), errors.Is(err, domain.ErrNotDraftReady):
		return Result{}, apperrors.NewInvalidState(err.Error(), map[string]any{"ticket_id": ticketID})
	case err != nil:
		return Result{}, err
	}

	s.recordSent(ctx, opSend, updated)
	return Result{Ticket: updated, Outcome: OutcomeApplied}, nil
}

// EditDraft replaces the draft text. Confidence and sources are untouched and
// a pending auto-send is not affected.
func (s *DraftService) EditDraft(ctx context.Context, ticketID, text string) (*domain.Ticket, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewValidationError("draft text required", nil)
	}
	updated, err := s.tickets.Apply(ctx, ticketID, domain.ReplaceDraftText(text))
	if errors.Is(err, domain.ErrNoDraft) || errors.Is(err, domain.ErrNotDraftReady) {
		return nil, apperrors.NewInvalidState("draft can only be edited while draft ready", map[string]any{"ticket_id": ticketID})
	}
	if err != nil {
		return nil, err
	}
	s.metrics.RecordOperation(opEdit, string(OutcomeApplied))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventDraftEdited,
		TicketID: ticketID,
		Actor:    humanActor(),
		Payload:  events.DraftEditedPayload{TextPreview: stringPreview(text, 120)},
	})
	return updated, nil
}

// Wait blocks until every scheduled auto-send has fired and finished.
func (s *DraftService) Wait() {
	s.bg.Wait()
}

// Close stops scheduled auto-sends that have not fired and waits for running ones.
func (s *DraftService) Close() {
	s.mu.Lock()
	s.closed = true
	for token, timer := range s.pending {
		if timer.Stop() {
			s.bg.Done()
		}
		delete(s.pending, token)
	}
	s.mu.Unlock()
	s.bg.Wait()
}

// scheduleAutoSend arms a timer for the draft identified by draftID. A timer
// whose draft has been regenerated by the time it fires does nothing.
func (s *DraftService) scheduleAutoSend(ctx context.Context, ticketID, draftID string, confidence float64) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.nextTimer++
	token := s.nextTimer
	s.bg.Add(1)
	s.pending[token] = s.clock.AfterFunc(s.policy.AutoSendDelay, func() {
		defer s.bg.Done()
		s.mu.Lock()
		delete(s.pending, token)
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return
		}
		s.autoSend(ticketID, draftID)
	})
	s.mu.Unlock()

	s.logger.Info("auto-send scheduled",
		zap.String("ticket_id", ticketID),
		zap.String("draft_id", draftID),
		zap.Float64("confidence", confidence),
		zap.Duration("delay", s.policy.AutoSendDelay))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventAutoSendScheduled,
		TicketID: ticketID,
		Actor:    aiActor(),
		Payload: events.AutoSendScheduledPayload{
			Confidence: confidence,
			Delay:      s.policy.AutoSendDelay,
		},
	})
	return true
}

// autoSend runs when the auto-send delay elapses. It re-reads the ticket and
// only sends the draft it was scheduled for; the commit checks again.
func (s *DraftService) autoSend(ticketID, draftID string) {
	ctx := context.Background()
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		s.logger.Error("auto-send lookup failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	if ticket.Draft == nil || ticket.Status != domain.TicketStatusDraftReady {
		s.skipAutoSend(ticketID, "ticket no longer draft ready")
		return
	}
	if ticket.Draft.ID != draftID {
		s.skipAutoSend(ticketID, "draft regenerated")
		return
	}
	if !s.tracker.TryBeginSending(ticketID) {
		s.skipAutoSend(ticketID, "operation in flight")
		return
	}
	defer s.tracker.EndSending(ticketID)

	s.clock.Sleep(s.policy.AutoSendLatency)

	updated, err := s.tickets.Apply(ctx, ticketID, domain.MarkAutoSent(draftID, s.clock.Now()))
	if err != nil {
		if errors.Is(err, domain.ErrDraftReplaced) || errors.Is(err, domain.ErrTerminal) || errors.Is(err, domain.ErrNotDraftReady) || errors.Is(err, domain.ErrNoDraft) {
			s.skipAutoSend(ticketID, err.Error())
			return
		}
		s.metrics.RecordOperation(opAutoSend, "failed")
		s.logger.Error("auto-send commit failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return
	}
	s.recordSent(ctx, opAutoSend, updated)
}

func (s *DraftService) skipAutoSend(ticketID, reason string) {
	s.metrics.RecordOperation(opAutoSend, "skipped")
	s.logger.Info("auto-send skipped", zap.String("ticket_id", ticketID), zap.String("reason", reason))
}

func (s *DraftService) recordSent(ctx context.Context, op string, ticket *domain.Ticket) {
	s.metrics.RecordOperation(op, string(OutcomeApplied))
	s.logger.Info("ticket sent",
		zap.String("ticket_id", ticket.ID),
		zap.String("status", string(ticket.Status)),
		zap.String("sent_by", string(*ticket.SentBy)))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketSent,
		TicketID: ticket.ID,
		Actor:    events.Actor{Type: *ticket.SentBy},
		Payload: events.TicketSentPayload{
			Status: ticket.Status,
			SentAt: *ticket.SentAt,
		},
	})
}

func (s *DraftService) ignored(op string, ticket *domain.Ticket, outcome Outcome) Result {
	s.metrics.RecordOperation(op, string(outcome))
	s.logger.Debug("operation ignored",
		zap.String("operation", op),
		zap.String("ticket_id", ticket.ID),
		zap.String("outcome", string(outcome)))
	return Result{Ticket: ticket, Outcome: outcome}
}

func (s *DraftService) draftFromResult(resp clients.DraftResult) (domain.Draft, domain.Classification) {
	confidence := DefaultConfidence
	if resp.Confidence != nil {
		confidence = clampConfidence(*resp.Confidence)
	}
	class := domain.Classification{
		Category:  resp.Category,
		Sentiment: DefaultSentiment,
		Urgency:   DefaultUrgency,
	}
	if resp.Sentiment != nil {
		if sentiment, ok := domain.ParseSentiment(*resp.Sentiment); ok {
			class.Sentiment = sentiment
		}
	}
	if resp.Urgency != nil {
		if urgency, ok := domain.ParseUrgency(*resp.Urgency); ok {
			class.Urgency = urgency
		}
	}
	sources := resp.Sources
	if sources == nil {
		sources = []domain.RAGSource{}
	}
	return domain.Draft{
		ID:          uuid.NewString(),
		Text:        strings.TrimSpace(resp.Text),
		Confidence:  confidence,
		Critique:    resp.Critique,
		GeneratedAt: s.clock.Now(),
		Sources:     sources,
	}, class
}

func (s *DraftService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.clock.Now()
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func clampConfidence(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

func aiActor() events.Actor {
	return events.Actor{Type: domain.SenderAI}
}

func humanActor() events.Actor {
	return events.Actor{Type: domain.SenderHuman}
}

func stringPreview(body string, max int) string {
	return truncateRunes(strings.TrimSpace(body), max)
}

// truncateRunes shortens s to at most max bytes without splitting a rune,
// marking the cut with "...".
func truncateRunes(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return cutAtRune(s, max)
	}
	return cutAtRune(s, max-3) + "..."
}

func cutAtRune(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
