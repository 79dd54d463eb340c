package assist

import (
	"context"

	"github.com/ecanzonieri/pitchline/internal/insight"
)

// Segment is one recorded audio segment, the raw input of a turn.
type Segment struct {
	Audio []byte
	MIME  string
}

// Transcriber turns one audio segment into utterance text. Implementations
// must not retry on their own: re-transcribing audio behind the caller's back
// risks double-charging the provider and cannot fix a corrupt recording.
type Transcriber interface {
	Transcribe(ctx context.Context, seg Segment) (string, error)
}

// Analyzer infers sentiment, tone and intent from a segment or from text.
type Analyzer interface {
	AnalyzeAudio(ctx context.Context, seg Segment) (insight.Summary, error)
	AnalyzeText(ctx context.Context, text string) (insight.Summary, error)
}

type RecommendRequest struct {
	CustomerID int64
	Utterance  string
	Summary    insight.Summary
}

// Recommendation carries both the structured terms and the raw payload text;
// the tip section is extracted from Payload by the caller. Returning both in
// one response keeps collaborator state out of the pipeline.
type Recommendation struct {
	Terms   string
	Payload string
}

type Recommender interface {
	Recommend(ctx context.Context, req RecommendRequest) (Recommendation, error)
}

type ReplyRequest struct {
	Utterance        string
	RecommendedTerms string
	Summary          insight.Summary
}

type ReplyGenerator interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// Summarizer produces the post-call analysis. Its output is consumed outside
// the turn pipeline; failures are logged, never propagated into a turn result.
type Summarizer interface {
	Summarize(ctx context.Context, transcript string, summary insight.Summary, customerID int64) error
}
