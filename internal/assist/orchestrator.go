// Package assist contains the turn orchestration pipeline: it sequences one
// raw utterance into durable log writes, a negotiation recommendation and a
// generated reply, and detects the call-terminating turn.
package assist

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecanzonieri/pitchline/internal/convlog"
	"github.com/ecanzonieri/pitchline/internal/interlog"
	"github.com/ecanzonieri/pitchline/internal/logger"
	"github.com/ecanzonieri/pitchline/internal/negotiation"
	"github.com/ecanzonieri/pitchline/internal/observability"
)

// GoodbyeMessage is the fixed AI entry that terminates a call transcript.
const GoodbyeMessage = "Goodbye! Have a great day!"

// exitMarker ends the call when it appears anywhere in the utterance,
// case-insensitively.
const exitMarker = "exit"

// TurnResult is the per-turn 4-tuple surfaced to the caller. On the terminal
// turn the recommendation fields are empty by design: they signal "no further
// recommendation needed", not a failure.
type TurnResult struct {
	RecommendedTerms string `json:"recommended_terms"`
	NegotiationTips  string `json:"negotiation_tips"`
	AIResponse       string `json:"ai_response"`
	Sentiment        string `json:"sentiment"`
	Ended            bool   `json:"ended"`
}

// Orchestrator drives the per-turn state machine. It is the sole writer to
// both log stores and the sole caller of the external collaborators; turns
// are processed strictly sequentially because recommendation quality depends
// on the previous turn's logged state.
type Orchestrator struct {
	conv         *convlog.Store
	interactions interlog.Store
	transcriber  Transcriber
	analyzer     Analyzer
	recommender  Recommender
	replier      ReplyGenerator
	summarizer   Summarizer
	metrics      *observability.Metrics
	log          *logger.Logger
	hub          *Hub

	mu sync.Mutex
}

func NewOrchestrator(
	conv *convlog.Store,
	interactions interlog.Store,
	transcriber Transcriber,
	analyzer Analyzer,
	recommender Recommender,
	replier ReplyGenerator,
	summarizer Summarizer,
	metrics *observability.Metrics,
	log *logger.Logger,
) *Orchestrator {
	return &Orchestrator{
		conv:         conv,
		interactions: interactions,
		transcriber:  transcriber,
		analyzer:     analyzer,
		recommender:  recommender,
		replier:      replier,
		summarizer:   summarizer,
		metrics:      metrics,
		log:          log,
		hub:          NewHub(),
	}
}

// Events exposes the turn event feed consumed by the UI layer.
func (o *Orchestrator) Events() *Hub {
	return o.hub
}

// StartCall resets the conversation log for a new session. Any summary needed
// from the previous session must have been derived before this point.
func (o *Orchestrator) StartCall() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.conv.Reset()
}

// Transcript returns the flattened transcript of the current conversation log.
func (o *Orchestrator) Transcript() (string, error) {
	entries, err := o.conv.ReadAll()
	if err != nil {
		return "", err
	}
	return convlog.Flatten(entries), nil
}

// ProcessTurn runs the full pipeline for one audio segment. Exactly one of
// two paths is taken: the ordinary path appends one interaction record and an
// AI reply, the terminal path appends the goodbye entry and triggers the
// post-call summary. Cancellation through ctx between the user append and the
// AI append leaves the conversation log consistent: the user's entry stays.
func (o *Orchestrator) ProcessTurn(ctx context.Context, customerID int64, seg Segment) (TurnResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	turnID := uuid.NewString()
	log := o.log.WithField("turn_id", turnID)

	start := time.Now()
	utterance, err := o.transcriber.Transcribe(ctx, seg)
	o.metrics.ObserveTurnStage(StageTranscribe, time.Since(start))
	if err != nil {
		return o.fail(turnID, StageTranscribe, err)
	}
	log.WithField("utterance_len", len(utterance)).Debug("utterance transcribed")

	// The user's words go into the transcript before the terminal check, so
	// the exit turn's final words are never lost.
	if err := o.conv.Append(convlog.Entry{Speaker: convlog.SpeakerUser, Message: utterance}); err != nil {
		return o.fail(turnID, StageLogUser, err)
	}
	o.hub.Publish(TurnEvent{Type: EventUserUtterance, TurnID: turnID, Utterance: utterance})

	if strings.Contains(strings.ToLower(utterance), exitMarker) {
		return o.endCall(ctx, turnID, customerID)
	}

	start = time.Now()
	summary, err := o.analyzer.AnalyzeAudio(ctx, seg)
	o.metrics.ObserveTurnStage(StageAnalyze, time.Since(start))
	if err != nil {
		return o.fail(turnID, StageAnalyze, err)
	}

	start = time.Now()
	id, err := o.interactions.NextID(ctx)
	if err != nil {
		return o.fail(turnID, StageLogInteraction, err)
	}
	rec := interlog.Record{
		ID:         id,
		CustomerID: customerID,
		Timestamp:  time.Now().UTC(),
		Channel:    interlog.Channel,
		Utterance:  utterance,
		Sentiment:  string(summary.Sentiment),
		Tone:       summary.Tone,
		Intent:     summary.Intent,
	}
	if err := o.interactions.Append(ctx, rec); err != nil {
		return o.fail(turnID, StageLogInteraction, err)
	}
	o.metrics.ObserveTurnStage(StageLogInteraction, time.Since(start))

	start = time.Now()
	recommendation, err := o.recommender.Recommend(ctx, RecommendRequest{
		CustomerID: customerID,
		Utterance:  utterance,
		Summary:    summary,
	})
	o.metrics.ObserveTurnStage(StageRecommend, time.Since(start))
	if err != nil {
		return o.fail(turnID, StageRecommend, err)
	}
	tips := strings.Join(negotiation.ExtractTips(recommendation.Payload), "\n")

	start = time.Now()
	reply, err := o.replier.Reply(ctx, ReplyRequest{
		Utterance:        utterance,
		RecommendedTerms: recommendation.Terms,
		Summary:          summary,
	})
	o.metrics.ObserveTurnStage(StageReply, time.Since(start))
	if err != nil {
		return o.fail(turnID, StageReply, err)
	}

	if err := o.conv.Append(convlog.Entry{Speaker: convlog.SpeakerAI, Message: reply}); err != nil {
		return o.fail(turnID, StageLogAI, err)
	}

	res := TurnResult{
		RecommendedTerms: recommendation.Terms,
		NegotiationTips:  tips,
		AIResponse:       reply,
		Sentiment:        string(summary.Sentiment),
	}
	o.metrics.TurnsTotal.WithLabelValues("ok").Inc()
	o.hub.Publish(TurnEvent{
		Type:             EventAssistantTurn,
		TurnID:           turnID,
		Utterance:        utterance,
		AIResponse:       reply,
		Sentiment:        res.Sentiment,
		RecommendedTerms: res.RecommendedTerms,
		NegotiationTips:  res.NegotiationTips,
	})
	log.WithField("interaction_id", id).Info("turn processed")
	return res, nil
}

// endCall is the terminal path: goodbye entry, transcript readback, one
// text-level analysis and the post-call summary. The summary is fire-and-
// forget: its failures are logged, never surfaced into the turn result, and
// no interaction record is appended for this turn.
func (o *Orchestrator) endCall(ctx context.Context, turnID string, customerID int64) (TurnResult, error) {
	if err := o.conv.Append(convlog.Entry{Speaker: convlog.SpeakerAI, Message: GoodbyeMessage}); err != nil {
		return o.fail(turnID, StageLogAI, err)
	}

	entries, err := o.conv.ReadAll()
	if err != nil {
		// Best-effort: the summary loses its transcript but the call still ends.
		o.log.WithField("turn_id", turnID).WithError(err).Warn("transcript readback failed")
		entries = nil
	}
	transcript := convlog.Flatten(entries)

	summary, err := o.analyzer.AnalyzeText(ctx, transcript)
	if err != nil {
		o.log.WithField("turn_id", turnID).WithError(err).Warn("post-call analysis failed, skipping summary")
	} else if err := o.summarizer.Summarize(ctx, transcript, summary, customerID); err != nil {
		o.log.WithField("turn_id", turnID).WithError(err).Warn("post-call summary failed")
	}

	o.metrics.TurnsTotal.WithLabelValues("call_ended").Inc()
	o.hub.Publish(TurnEvent{Type: EventCallEnded, TurnID: turnID, AIResponse: GoodbyeMessage})
	o.log.WithField("turn_id", turnID).Info("call ended")

	return TurnResult{AIResponse: GoodbyeMessage, Ended: true}, nil
}

func (o *Orchestrator) fail(turnID, stage string, err error) (TurnResult, error) {
	if provider := providerForStage(stage); provider != "" {
		o.metrics.ProviderErrors.WithLabelValues(provider, stage).Inc()
	}
	o.metrics.TurnsTotal.WithLabelValues("failed").Inc()
	o.hub.Publish(TurnEvent{Type: EventTurnFailed, TurnID: turnID, Stage: stage, Detail: err.Error()})
	o.log.WithField("turn_id", turnID).WithField("stage", stage).WithError(err).Error("turn failed")
	return TurnResult{}, turnErr(stage, err)
}

func providerForStage(stage string) string {
	switch stage {
	case StageTranscribe:
		return "transcriber"
	case StageAnalyze:
		return "analyzer"
	case StageRecommend:
		return "recommender"
	case StageReply:
		return "replier"
	default:
		return ""
	}
}
