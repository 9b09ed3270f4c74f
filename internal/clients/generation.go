package clients

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/draft-pipeline/internal/domain"
)

// ErrEmptyDraft is returned when the generation service answers without text.
var ErrEmptyDraft = errors.New("generation returned no draft text")

// DraftResult is the generation response. Nil fields were absent upstream.
type DraftResult struct {
	Text       string
	Confidence *float64
	Critique   string
	Sources    []domain.RAGSource
	Category   *string
	Sentiment  *string
	Urgency    *string
}

type generateRequest struct {
	Model           string        `json:"model"`
	Messages        []chatMessage `json:"messages"`
	Stream          bool          `json:"stream"`
	SelectedSources []string      `json:"selected_sources,omitempty"`
}

type generateResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Metadata *struct {
		Confidence *float64           `json:"confidence"`
		Critique   string             `json:"critique"`
		Category   *string            `json:"category"`
		Sentiment  *string            `json:"sentiment"`
		Urgency    *string            `json:"urgency"`
		RAGSources []ragSourcePayload `json:"rag_sources"`
	} `json:"metadata"`
}

// GenerationClient asks the generation service for a draft reply.
type GenerationClient struct {
	opts Options
}

// NewGenerationClient constructs the client.
func NewGenerationClient(opts Options) *GenerationClient {
	return &GenerationClient{opts: opts}
}

// GenerateDraft drafts a reply to query. A non-empty selected list scopes
// retrieval to those documents.
func (c *GenerationClient) GenerateDraft(ctx context.Context, query string, selected []string) (DraftResult, error) {
	req := generateRequest{
		Model:    c.opts.model(),
		Messages: []chatMessage{{Role: "user", Content: query}},
		Stream:   false,
	}
	if len(selected) > 0 {
		req.SelectedSources = selected
	}
	agent := fiber.Post(c.opts.endpoint("/copilot")).JSON(req)

	var resp generateResponse
	if err := doJSON(ctx, agent, c.opts.Timeout, &resp); err != nil {
		return DraftResult{}, fmt.Errorf("generate draft: %w", err)
	}

	var result DraftResult
	if len(resp.Choices) > 0 {
		result.Text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if result.Text == "" {
		return DraftResult{}, ErrEmptyDraft
	}
	result.Sources = []domain.RAGSource{}
	if meta := resp.Metadata; meta != nil {
		result.Confidence = meta.Confidence
		result.Critique = meta.Critique
		result.Category = nonEmpty(meta.Category)
		result.Sentiment = nonEmpty(meta.Sentiment)
		result.Urgency = nonEmpty(meta.Urgency)
		result.Sources = toRAGSources(meta.RAGSources)
	}
	return result, nil
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return s
}
