package gateway

import (
	"context"
	"fmt"

	"github.com/ecanzonieri/pitchline/internal/insight"
	"github.com/ecanzonieri/pitchline/internal/logger"
)

const summarizerSystemPrompt = `You write post-call analyses for sales managers. Given a
full call transcript and its overall analysis, summarize: the customer's key
concerns, how the negotiation went, commitments made by either side, and one
recommended follow-up action.`

// Summarizer produces the post-call analysis. The result is written to the
// service log for the manager-facing pipeline; the turn that triggered it
// never consumes it.
type Summarizer struct {
	llm *LLM
	log *logger.Logger
}

func NewSummarizer(llm *LLM, log *logger.Logger) *Summarizer {
	return &Summarizer{llm: llm, log: log}
}

func (s *Summarizer) Summarize(ctx context.Context, transcript string, summary insight.Summary, customerID int64) error {
	user := fmt.Sprintf("Customer id: %d\nOverall sentiment: %s\nOverall tone: %s\nOverall intent: %s\n\nTranscript:\n%s",
		customerID, summary.Sentiment, summary.Tone, summary.Intent, transcript)

	out, err := s.llm.complete(ctx, summarizerSystemPrompt, user)
	if err != nil {
		return fmt.Errorf("post-call summary: %w", err)
	}
	s.log.WithField("customer_id", customerID).WithField("summary", out).Info("post-call analysis")
	return nil
}
