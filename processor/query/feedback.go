package query

import (
	"context"
	stderrors "errors"
	"fmt"
	"maps"
	"time"

	"github.com/c360/graphrag/errors"
	"github.com/c360/graphrag/processor/query/intent"
)

// Feedback is user feedback on one response.
type Feedback struct {
	// CorrectIntent names the intent the query should have been classified as.
	CorrectIntent string `json:"correct_intent,omitempty"`
	// Query is the text to learn from; the recorded query text when empty.
	Query string `json:"query,omitempty"`
	// BetterResponse is a suggested answer, kept for review.
	BetterResponse string `json:"better_response,omitempty"`
}

type feedbackEntry struct {
	queryID   string
	feedback  Feedback
	timestamp time.Time
}

// FeedbackUpdate reports what ApplyFeedback changed.
type FeedbackUpdate struct {
	IntentsImproved   int      `json:"intents_improved"`
	ResponsesFlagged  int      `json:"responses_flagged"`
	ExamplesAdded     []string `json:"examples_added"`
	FeedbackProcessed int      `json:"feedback_processed"`
}

// CollectFeedback queues feedback on the response with queryID.
func (p *Processor) CollectFeedback(queryID string, fb Feedback) error {
	if queryID == "" {
		return errors.WrapInvalid(fmt.Errorf("empty query id: %w", errors.ErrInvalidData),
			"Processor", "CollectFeedback", "validate query id")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.feedback = append(p.feedback, feedbackEntry{queryID: queryID, feedback: fb, timestamp: time.Now()})
	return nil
}

// PendingFeedback returns the number of queued feedback entries.
func (p *Processor) PendingFeedback() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.feedback)
}

// ApplyFeedback drains the feedback queue. Intent corrections add the query as an
// example of the correct intent, which recomputes the classifier centroids. Entries
// naming an unregistered intent are skipped. Embedding faults while recomputing are
// joined into the returned error; the examples are kept.
func (p *Processor) ApplyFeedback(ctx context.Context) (FeedbackUpdate, error) {
	p.mu.Lock()
	pending := p.feedback
	p.feedback = nil
	queries := make(map[string]string, len(p.history))
	for _, h := range p.history {
		queries[h.ID] = h.Query
	}
	p.mu.Unlock()

	update := FeedbackUpdate{FeedbackProcessed: len(pending)}
	var errs []error

	p.intentMu.Lock()
	defer p.intentMu.Unlock()

	for _, e := range pending {
		fb := e.feedback
		if fb.BetterResponse != "" {
			update.ResponsesFlagged++
			p.logger.Info("better response suggested", "query_id", e.queryID, "response", fb.BetterResponse)
		}
		if fb.CorrectIntent == "" {
			continue
		}

		text := fb.Query
		if text == "" {
			text = queries[e.queryID]
		}
		if text == "" {
			p.logger.Debug("intent correction without query text", "query_id", e.queryID)
			continue
		}

		err := p.classifier.AddExample(ctx, fb.CorrectIntent, text)
		if stderrors.Is(err, intent.ErrUnknownIntent) {
			p.logger.Warn("feedback names unknown intent", "query_id", e.queryID, "intent", fb.CorrectIntent)
			continue
		}
		if err != nil {
			errs = append(errs, err)
		}
		update.IntentsImproved++
		update.ExamplesAdded = append(update.ExamplesAdded,
			fmt.Sprintf("Added example for %s: '%s'", fb.CorrectIntent, text))
	}

	p.metrics.recordFeedback(len(update.ExamplesAdded))
	p.logger.Info("feedback applied",
		"processed", update.FeedbackProcessed, "examples_added", len(update.ExamplesAdded))
	return update, stderrors.Join(errs...)
}

type queryStats struct {
	total     int
	succeeded int
	multiPath int
	elapsed   time.Duration
	intents   map[string]int
}

func (s *queryStats) observe(r Response, multiPath bool) {
	s.total++
	if r.Success {
		s.succeeded++
	}
	if multiPath {
		s.multiPath++
	}
	s.elapsed += r.Duration
	s.intents[r.Intent]++
}

// Stats summarizes the processed queries.
type Stats struct {
	TotalQueries        int            `json:"total_queries"`
	SuccessfulQueries   int            `json:"successful_queries"`
	AverageResponseTime time.Duration  `json:"avg_response_time"`
	IntentDistribution  map[string]int `json:"intent_distribution"`
	ComplexQueryCount   int            `json:"complex_query_count"`
}

// Stats returns counters over every processed query, not only the retained history.
func (p *Processor) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Stats{
		TotalQueries:       p.stats.total,
		SuccessfulQueries:  p.stats.succeeded,
		IntentDistribution: maps.Clone(p.stats.intents),
		ComplexQueryCount:  p.stats.multiPath,
	}
	if p.stats.total > 0 {
		st.AverageResponseTime = p.stats.elapsed / time.Duration(p.stats.total)
	}
	return st
}
