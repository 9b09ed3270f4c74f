package domain

import "time"

// ReviewThreshold is the confidence below which a draft needs a human look.
const ReviewThreshold = 0.8

// RAGSource references a knowledge-base section that grounded a draft.
type RAGSource struct {
	Document       string
	Section        string
	Category       string
	Relevance      float64
	ContentPreview string
}

// Draft is a generated (or edited) candidate reply owned by a ticket.
type Draft struct {
	// ID identifies one generation. Edits keep it; regeneration replaces it.
	ID          string
	Text        string
	Confidence  float64
	Critique    string
	GeneratedAt time.Time
	Sources     []RAGSource
}

// NeedsHumanReview is derived from confidence on every read.
func (d Draft) NeedsHumanReview() bool {
	return d.Confidence < ReviewThreshold
}

// Documents returns the document ids of the sources in order.
func (d Draft) Documents() []string {
	docs := make([]string, 0, len(d.Sources))
	for _, src := range d.Sources {
		docs = append(docs, src.Document)
	}
	return docs
}

// Clone returns a copy that does not share the sources slice.
func (d Draft) Clone() Draft {
	out := d
	if d.Sources != nil {
		out.Sources = append([]RAGSource(nil), d.Sources...)
	}
	return out
}
