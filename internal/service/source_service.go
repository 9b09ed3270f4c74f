package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/draft-pipeline/internal/clients"
	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/repository"
	"github.com/spec-kit/draft-pipeline/internal/selection"
	apperrors "github.com/spec-kit/draft-pipeline/pkg/util/errorutil"
)

// SourceSuggester finds knowledge documents relevant to a query.
type SourceSuggester interface {
	SuggestSources(ctx context.Context, query string) ([]domain.RAGSource, error)
	ListSources(ctx context.Context) ([]clients.KnowledgeSource, error)
}

// SuggestionCache keeps successful suggestion results for the process lifetime.
type SuggestionCache struct {
	mu      sync.RWMutex
	entries map[string][]domain.RAGSource
}

// NewSuggestionCache returns an empty cache.
func NewSuggestionCache() *SuggestionCache {
	return &SuggestionCache{entries: make(map[string][]domain.RAGSource)}
}

// Get returns a copy of the cached sources for ticketID.
func (c *SuggestionCache) Get(ticketID string) ([]domain.RAGSource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sources, ok := c.entries[ticketID]
	if !ok {
		return nil, false
	}
	return append([]domain.RAGSource{}, sources...), true
}

// Put stores sources unless an entry already exists, and returns the winner.
func (c *SuggestionCache) Put(ticketID string, sources []domain.RAGSource) []domain.RAGSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[ticketID]; ok {
		return append([]domain.RAGSource{}, existing...)
	}
	c.entries[ticketID] = append([]domain.RAGSource{}, sources...)
	return append([]domain.RAGSource{}, sources...)
}

// SourceService handles suggestion lookups and source selection sessions.
type SourceService struct {
	tickets   repository.TicketStore
	suggester SourceSuggester
	cache     *SuggestionCache
	sessions  *selection.Manager
	drafts    *DraftService
	logger    *zap.Logger
}

// SourceDependencies bundles collaborators for the source service.
type SourceDependencies struct {
	Tickets   repository.TicketStore
	Suggester SourceSuggester
	Cache     *SuggestionCache
	Sessions  *selection.Manager
	Drafts    *DraftService
	Logger    *zap.Logger
}

// NewSourceService constructs the service. Sessions must be the manager the
// draft service discards on successful generation.
func NewSourceService(deps SourceDependencies) *SourceService {
	s := &SourceService{
		tickets:   deps.Tickets,
		suggester: deps.Suggester,
		cache:     deps.Cache,
		sessions:  deps.Sessions,
		drafts:    deps.Drafts,
		logger:    deps.Logger,
	}
	if s.cache == nil {
		s.cache = NewSuggestionCache()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// SuggestedSources returns the AI-suggested sources for a ticket. The first
// successful fetch for an Open ticket is cached; failures are not, so the next
// call retries. Tickets past Open are never fetched for.
func (s *SourceService) SuggestedSources(ctx context.Context, ticketID string) ([]domain.RAGSource, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if cached, ok := s.cache.Get(ticketID); ok {
		return cached, nil
	}
	if ticket.Status != domain.TicketStatusOpen {
		return []domain.RAGSource{}, nil
	}
	sources, err := s.suggester.SuggestSources(ctx, ticket.Query)
	if err != nil {
		s.logger.Warn("source suggestions unavailable", zap.String("ticket_id", ticketID), zap.Error(err))
		return []domain.RAGSource{}, apperrors.NewSuggestionUnavailable(err)
	}
	return s.cache.Put(ticketID, sources), nil
}

// KnowledgeSources lists the knowledge-base catalog.
func (s *SourceService) KnowledgeSources(ctx context.Context) ([]clients.KnowledgeSource, error) {
	sources, err := s.suggester.ListSources(ctx)
	if err != nil {
		s.logger.Warn("knowledge catalog unavailable", zap.Error(err))
		return []clients.KnowledgeSource{}, apperrors.NewSuggestionUnavailable(err)
	}
	return sources, nil
}

// OpenSession starts curating sources for an Open or Draft Ready ticket.
// Open tickets are seeded from cached suggestions; Draft Ready tickets from
// the sources their current draft used.
func (s *SourceService) OpenSession(ctx context.Context, ticketID string) (selection.Session, error) {
	ticket, err := s.tickets.Get(ctx, ticketID)
	if err != nil {
		return selection.Session{}, err
	}
	var defaults []string
	switch ticket.Status {
	case domain.TicketStatusOpen:
		cached, _ := s.cache.Get(ticketID)
		for _, src := range cached {
			defaults = append(defaults, src.Document)
		}
	case domain.TicketStatusDraftReady:
		defaults = ticket.Draft.Documents()
	default:
		return selection.Session{}, apperrors.NewInvalidState("sources can only be selected before sending", map[string]any{
			"ticket_id": ticketID,
			"status":    ticket.Status,
		})
	}
	return s.sessions.Open(ticketID, defaults), nil
}

// Session returns the open session for a ticket, if any.
func (s *SourceService) Session(ctx context.Context, ticketID string) (selection.Session, bool, error) {
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return selection.Session{}, false, err
	}
	session, ok := s.sessions.Get(ticketID)
	return session, ok, nil
}

// ToggleSource flips a document in the ticket's session.
func (s *SourceService) ToggleSource(ctx context.Context, ticketID, document string) (selection.Session, error) {
	document = strings.TrimSpace(document)
	if document == "" {
		return selection.Session{}, apperrors.NewValidationError("document required", nil)
	}
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return selection.Session{}, err
	}
	session, err := s.sessions.Toggle(ticketID, document)
	if errors.Is(err, selection.ErrNoSession) {
		return selection.Session{}, apperrors.NewInvalidState("no source selection session open", map[string]any{"ticket_id": ticketID})
	}
	return session, err
}

// CommitSession regenerates the draft scoped to the selected documents. The
// session is discarded as soon as generation starts, whatever its outcome.
func (s *SourceService) CommitSession(ctx context.Context, ticketID string) (Result, error) {
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return Result{}, err
	}
	docs, err := s.sessions.Selection(ticketID)
	switch {
	case errors.Is(err, selection.ErrNoSession):
		return Result{}, apperrors.NewInvalidState("no source selection session open", map[string]any{"ticket_id": ticketID})
	case errors.Is(err, selection.ErrEmptySelection):
		return Result{}, apperrors.NewValidationError(err.Error(), map[string]any{"ticket_id": ticketID})
	case err != nil:
		return Result{}, err
	}
	s.sessions.Discard(ticketID)
	return s.drafts.Generate(ctx, ticketID, docs)
}

// DismissSession drops the ticket's session without generating.
func (s *SourceService) DismissSession(ctx context.Context, ticketID string) error {
	if _, err := s.tickets.Get(ctx, ticketID); err != nil {
		return err
	}
	s.sessions.Discard(ticketID)
	return nil
}
