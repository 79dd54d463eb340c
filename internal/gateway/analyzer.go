package gateway

import (
	"context"
	"fmt"

	"github.com/ecanzonieri/pitchline/internal/assist"
	"github.com/ecanzonieri/pitchline/internal/insight"
)

const analyzerSystemPrompt = `You are an analyst for sentiment, tone and intent in customer speech.
Classify the overall sentiment as Positive, Negative or Neutral. List the
emotions you detect as tone labels, comma-separated when several apply.
Describe the primary intent as a short phrase (for example "Seeking information",
"Expressing dissatisfaction", "Making a request").

Respond with exactly this format and nothing else:
Sentiment: [Positive/Negative/Neutral]
Tone: [comma-separated labels]
Intent: [short phrase]`

// Analyzer classifies a segment or a text via the chat gateway and parses the
// labeled three-line output block.
type Analyzer struct {
	llm *LLM
}

func NewAnalyzer(llm *LLM) *Analyzer {
	return &Analyzer{llm: llm}
}

func (a *Analyzer) AnalyzeAudio(ctx context.Context, seg assist.Segment) (insight.Summary, error) {
	out, err := a.llm.completeWithAudio(ctx, analyzerSystemPrompt,
		"Analyze the sentiment, tone and intent of this audio.", seg.Audio, formatForMIME(seg.MIME))
	if err != nil {
		return insight.Summary{}, fmt.Errorf("%w: %v", assist.ErrAnalysis, err)
	}
	return insight.Parse(out), nil
}

func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (insight.Summary, error) {
	out, err := a.llm.complete(ctx, analyzerSystemPrompt,
		"Analyze the sentiment, tone and intent of this statement:\n\n"+text)
	if err != nil {
		return insight.Summary{}, fmt.Errorf("%w: %v", assist.ErrAnalysis, err)
	}
	return insight.Parse(out), nil
}

func formatForMIME(mime string) string {
	switch mime {
	case "audio/mpeg", "audio/mp3":
		return "mp3"
	default:
		return "wav"
	}
}
