package clients

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

// KnowledgeSource describes a document available in the knowledge base.
type KnowledgeSource struct {
	ID          string
	Document    string
	Category    string
	Sections    []string
	TotalChunks int
}

type suggestRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type ragSourcePayload struct {
	Document       string  `json:"document"`
	Section        string  `json:"section"`
	Category       string  `json:"category"`
	Relevance      float64 `json:"relevance"`
	ContentPreview string  `json:"content_preview,omitempty"`
}

type suggestResponse struct {
	SuggestedSources []ragSourcePayload `json:"suggested_sources"`
}

type sourcesResponse struct {
	Sources []struct {
		ID          string   `json:"id"`
		Document    string   `json:"document"`
		Category    string   `json:"category"`
		Sections    []string `json:"sections"`
		TotalChunks int      `json:"total_chunks"`
	} `json:"sources"`
	Error string `json:"error,omitempty"`
}

// SuggestionClient asks the retrieval service which documents fit a query.
type SuggestionClient struct {
	opts Options
}

// NewSuggestionClient constructs the client.
func NewSuggestionClient(opts Options) *SuggestionClient {
	return &SuggestionClient{opts: opts}
}

// SuggestSources returns candidate sources ordered by relevance, highest first.
func (c *SuggestionClient) SuggestSources(ctx context.Context, query string) ([]domain.RAGSource, error) {
	if strings.TrimSpace(query) == "" {
		return []domain.RAGSource{}, nil
	}
	agent := fiber.Post(c.opts.endpoint("/suggest-sources")).JSON(suggestRequest{
		Model:    c.opts.model(),
		Messages: []chatMessage{{Role: "user", Content: query}},
	})

	var resp suggestResponse
	if err := doJSON(ctx, agent, c.opts.Timeout, &resp); err != nil {
		return nil, fmt.Errorf("suggest sources: %w", err)
	}

	sources := toRAGSources(resp.SuggestedSources)
	sort.SliceStable(sources, func(i, j int) bool {
		return sources[i].Relevance > sources[j].Relevance
	})
	return sources, nil
}

// ListSources returns the knowledge-base catalog.
func (c *SuggestionClient) ListSources(ctx context.Context) ([]KnowledgeSource, error) {
	agent := fiber.Get(c.opts.endpoint("/sources"))

	var resp sourcesResponse
	if err := doJSON(ctx, agent, c.opts.Timeout, &resp); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("list sources: %s", resp.Error)
	}

	out := make([]KnowledgeSource, 0, len(resp.Sources))
	for _, src := range resp.Sources {
		out = append(out, KnowledgeSource{
			ID:          src.ID,
			Document:    src.Document,
			Category:    src.Category,
			Sections:    src.Sections,
			TotalChunks: src.TotalChunks,
		})
	}
	return out, nil
}

func toRAGSources(payload []ragSourcePayload) []domain.RAGSource {
	out := make([]domain.RAGSource, 0, len(payload))
	for _, src := range payload {
		out = append(out, domain.RAGSource{
			Document:       src.Document,
			Section:        src.Section,
			Category:       src.Category,
			Relevance:      clamp01(src.Relevance),
			ContentPreview: src.ContentPreview,
		})
	}
	return out
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
