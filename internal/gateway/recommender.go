package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecanzonieri/pitchline/internal/assist"
	"github.com/ecanzonieri/pitchline/internal/dataset"
	"github.com/ecanzonieri/pitchline/internal/negotiation"
)

const recommenderSystemPrompt = `You are a sales negotiation advisor. Given a customer's
latest statement and its analysis, propose contract terms the agent should
offer next and concrete negotiation strategies.

Respond in exactly this layout:
Recommended Terms: [one line of concrete terms to offer]

Negotiation Strategies:
- [strategy]
- [strategy]
- [strategy]

[optional closing remarks]`

const termsLabel = "Recommended Terms:"

// Recommender asks the chat gateway for negotiation guidance. It returns both
// the structured terms line and the raw payload; the tip section is extracted
// from the payload downstream.
type Recommender struct {
	llm  *LLM
	book *dataset.Book
}

func NewRecommender(llm *LLM, book *dataset.Book) *Recommender {
	if book == nil {
		book = dataset.Empty()
	}
	return &Recommender{llm: llm, book: book}
}

func (r *Recommender) Recommend(ctx context.Context, req assist.RecommendRequest) (assist.Recommendation, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer %d", req.CustomerID)
	if c, ok := r.book.Lookup(req.CustomerID); ok {
		fmt.Fprintf(&b, " (%s, segment %s, plan %s, open balance %.2f, %d months active)",
			c.Name, c.Segment, c.Plan, c.OpenBalance, c.MonthsActive)
	}
	fmt.Fprintf(&b, " said: %q\n", req.Utterance)
	fmt.Fprintf(&b, "Sentiment: %s\nTone: %s\nIntent: %s\n",
		req.Summary.Sentiment, req.Summary.Tone, req.Summary.Intent)
	b.WriteString("\nRemember to include the \"" + negotiation.Marker + "\" section.")

	payload, err := r.llm.complete(ctx, recommenderSystemPrompt, b.String())
	if err != nil {
		return assist.Recommendation{}, fmt.Errorf("%w: %v", assist.ErrRecommendation, err)
	}

	return assist.Recommendation{
		Terms:   termsFromPayload(payload),
		Payload: payload,
	}, nil
}

func termsFromPayload(payload string) string {
	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, termsLabel) {
			return strings.TrimSpace(strings.TrimPrefix(line, termsLabel))
		}
	}
	return ""
}
