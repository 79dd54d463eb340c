package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/ecanzonieri/pitchline/internal/assist"
)

const replierSystemPrompt = `You are a sales agent on a live call. Write the next thing
the agent should say to the customer: short, natural spoken language, at most
three sentences. Acknowledge the customer's mood and work the recommended
terms in without reading them out like a list.`

// Replier generates the agent-facing AI response for one turn.
type Replier struct {
	llm *LLM
}

func NewReplier(llm *LLM) *Replier {
	return &Replier{llm: llm}
}

func (r *Replier) Reply(ctx context.Context, req assist.ReplyRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer said: %q\n", req.Utterance)
	fmt.Fprintf(&b, "Sentiment: %s\nTone: %s\nIntent: %s\n",
		req.Summary.Sentiment, req.Summary.Tone, req.Summary.Intent)
	if strings.TrimSpace(req.RecommendedTerms) != "" {
		fmt.Fprintf(&b, "Recommended terms to offer: %s\n", req.RecommendedTerms)
	}

	out, err := r.llm.complete(ctx, replierSystemPrompt, b.String())
	if err != nil {
		return "", fmt.Errorf("%w: %v", assist.ErrReplyGeneration, err)
	}
	reply := strings.TrimSpace(out)
	if reply == "" {
		return "", fmt.Errorf("%w: empty reply", assist.ErrReplyGeneration)
	}
	return reply, nil
}
