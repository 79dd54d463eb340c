package gateway

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ecanzonieri/pitchline/internal/assist"
	"github.com/ecanzonieri/pitchline/internal/insight"
	"github.com/ecanzonieri/pitchline/internal/negotiation"
)

// Mock implements every collaborator deterministically so the service runs
// without a gateway. The mock transcriber treats the segment bytes as UTF-8
// text when possible, which lets demos and tests drive the pipeline with
// plain strings in place of audio.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

func (m *Mock) Transcribe(_ context.Context, seg assist.Segment) (string, error) {
	if len(seg.Audio) == 0 {
		return "", fmt.Errorf("%w: empty audio segment", assist.ErrTranscription)
	}
	if !utf8.Valid(seg.Audio) {
		return "Hello, I'm calling about my contract.", nil
	}
	text := strings.TrimSpace(string(seg.Audio))
	if text == "" {
		return "", fmt.Errorf("%w: empty transcript for non-silent segment", assist.ErrTranscription)
	}
	return text, nil
}

func (m *Mock) AnalyzeAudio(ctx context.Context, seg assist.Segment) (insight.Summary, error) {
	text := ""
	if utf8.Valid(seg.Audio) {
		text = string(seg.Audio)
	}
	return m.AnalyzeText(ctx, text)
}

func (m *Mock) AnalyzeText(_ context.Context, text string) (insight.Summary, error) {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "price") || strings.Contains(lower, "expensive") ||
		strings.Contains(lower, "too high") || strings.Contains(lower, "cost"):
		return insight.Summary{
			Sentiment: insight.SentimentNegative,
			Tone:      "Frustrated",
			Intent:    "Expressing dissatisfaction",
		}, nil
	case strings.Contains(lower, "thank") || strings.Contains(lower, "great") ||
		strings.Contains(lower, "love"):
		return insight.Summary{
			Sentiment: insight.SentimentPositive,
			Tone:      "Grateful",
			Intent:    "Expressing gratitude",
		}, nil
	default:
		return insight.Summary{
			Sentiment: insight.SentimentNeutral,
			Tone:      "Calm",
			Intent:    "General Inquiry",
		}, nil
	}
}

func (m *Mock) Recommend(_ context.Context, req assist.RecommendRequest) (assist.Recommendation, error) {
	terms := "12-month term at the current rate with a 10% loyalty discount"
	if req.Summary.Sentiment == insight.SentimentNegative {
		terms = "12-month term with a 15% discount for the first quarter"
	}
	payload := strings.Join([]string{
		"Recommended Terms: " + terms,
		"",
		negotiation.Marker,
		"- Acknowledge the customer's concern before talking numbers",
		"- Anchor on total value delivered over the contract period",
		"- Offer a concession that costs little but signals goodwill",
		"",
		"Keep the tone collaborative.",
	}, "\n")
	return assist.Recommendation{Terms: terms, Payload: payload}, nil
}

func (m *Mock) Reply(_ context.Context, req assist.ReplyRequest) (string, error) {
	if req.Summary.Sentiment == insight.SentimentNegative {
		return fmt.Sprintf("I hear you, and I want to make this work for you. What I can do today is %s. Would that help?",
			req.RecommendedTerms), nil
	}
	return fmt.Sprintf("Happy to help with that. Based on where you are, I'd suggest %s.",
		req.RecommendedTerms), nil
}

func (m *Mock) Summarize(context.Context, string, insight.Summary, int64) error {
	return nil
}
