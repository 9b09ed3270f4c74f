package service

import (
	"context"

	"github.com/spec-kit/draft-pipeline/internal/domain"
	"github.com/spec-kit/draft-pipeline/internal/repository"
)

// Analytics aggregates pipeline health over all tickets.
type Analytics struct {
	Total             int                         `json:"total"`
	ByStatus          map[domain.TicketStatus]int `json:"by_status"`
	ResolutionRate    float64                     `json:"resolution_rate"`
	AutomationRate    float64                     `json:"automation_rate"`
	Sentiment         map[domain.Sentiment]int    `json:"sentiment"`
	Urgency           map[domain.Urgency]int      `json:"urgency"`
	Categories        map[string]int              `json:"categories"`
	AverageConfidence float64                     `json:"average_confidence"`
	HighConfidence    int                         `json:"high_confidence_drafts"`
	NeedsReview       int                         `json:"needs_review_drafts"`
}

// AnalyticsService computes Analytics from the ticket store.
type AnalyticsService struct {
	tickets repository.TicketStore
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(tickets repository.TicketStore) *AnalyticsService {
	return &AnalyticsService{tickets: tickets}
}

// Compute walks the store once. Rates are percentages in [0,100].
func (s *AnalyticsService) Compute(ctx context.Context) (Analytics, error) {
	tickets, err := s.tickets.List(ctx)
	if err != nil {
		return Analytics{}, err
	}
	out := Analytics{
		Total:      len(tickets),
		ByStatus:   map[domain.TicketStatus]int{},
		Sentiment:  map[domain.Sentiment]int{},
		Urgency:    map[domain.Urgency]int{},
		Categories: map[string]int{},
	}

	var confidenceSum float64
	drafts := 0
	for _, t := range tickets {
		out.ByStatus[t.Status]++
		if t.Sentiment != nil {
			out.Sentiment[*t.Sentiment]++
		}
		if t.Urgency != nil {
			out.Urgency[*t.Urgency]++
		}
		if t.Category != nil {
			out.Categories[*t.Category]++
		}
		if t.Draft == nil {
			continue
		}
		drafts++
		confidenceSum += t.Draft.Confidence
		if t.Draft.NeedsHumanReview() {
			out.NeedsReview++
		} else {
			out.HighConfidence++
		}
	}

	sent := out.ByStatus[domain.TicketStatusSent] + out.ByStatus[domain.TicketStatusAutoSent]
	if out.Total > 0 {
		out.ResolutionRate = percent(sent, out.Total)
	}
	if sent > 0 {
		out.AutomationRate = percent(out.ByStatus[domain.TicketStatusAutoSent], sent)
	}
	if drafts > 0 {
		out.AverageConfidence = confidenceSum / float64(drafts)
	}
	return out, nil
}

func percent(part, whole int) float64 {
	return float64(part) / float64(whole) * 100
}
