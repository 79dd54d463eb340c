package assist

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecanzonieri/pitchline/internal/convlog"
	"github.com/ecanzonieri/pitchline/internal/insight"
	"github.com/ecanzonieri/pitchline/internal/interlog"
	"github.com/ecanzonieri/pitchline/internal/logger"
	"github.com/ecanzonieri/pitchline/internal/negotiation"
	"github.com/ecanzonieri/pitchline/internal/observability"
)

// Prometheus collectors register globally, so the package shares one set.
var testMetrics = observability.NewMetrics("assisttest")

type fakeTranscriber struct {
	err error
}

func (f *fakeTranscriber) Transcribe(_ context.Context, seg Segment) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(seg.Audio), nil
}

type fakeAnalyzer struct {
	summary   insight.Summary
	audioErr  error
	textErr   error
	textCalls []string
}

func (f *fakeAnalyzer) AnalyzeAudio(_ context.Context, _ Segment) (insight.Summary, error) {
	if f.audioErr != nil {
		return insight.Summary{}, f.audioErr
	}
	return f.summary, nil
}

func (f *fakeAnalyzer) AnalyzeText(_ context.Context, text string) (insight.Summary, error) {
	f.textCalls = append(f.textCalls, text)
	if f.textErr != nil {
		return insight.Summary{}, f.textErr
	}
	return f.summary, nil
}

type fakeRecommender struct {
	payload string
	terms   string
	err     error
	calls   int
	lastReq RecommendRequest
}

func (f *fakeRecommender) Recommend(_ context.Context, req RecommendRequest) (Recommendation, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return Recommendation{}, f.err
	}
	return Recommendation{Terms: f.terms, Payload: f.payload}, nil
}

type fakeReplier struct {
	reply   string
	err     error
	lastReq ReplyRequest
}

func (f *fakeReplier) Reply(_ context.Context, req ReplyRequest) (string, error) {
	f.lastReq = req
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type summaryCall struct {
	transcript string
	customerID int64
}

type fakeSummarizer struct {
	calls []summaryCall
	err   error
}

func (f *fakeSummarizer) Summarize(_ context.Context, transcript string, _ insight.Summary, customerID int64) error {
	f.calls = append(f.calls, summaryCall{transcript: transcript, customerID: customerID})
	return f.err
}

type fixture struct {
	orch        *Orchestrator
	conv        *convlog.Store
	inter       *interlog.CSVStore
	analyzer    *fakeAnalyzer
	recommender *fakeRecommender
	summarizer  *fakeSummarizer
	transcriber *fakeTranscriber
	replier     *fakeReplier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	conv, err := convlog.Open(filepath.Join(dir, "conversation_log.csv"))
	if err != nil {
		t.Fatalf("convlog.Open() error = %v", err)
	}
	t.Cleanup(func() { conv.Close() })

	inter, err := interlog.OpenCSV(filepath.Join(dir, "interactions.csv"))
	if err != nil {
		t.Fatalf("interlog.OpenCSV() error = %v", err)
	}
	t.Cleanup(func() { inter.Close() })

	fx := &fixture{
		conv:  conv,
		inter: inter,
		analyzer: &fakeAnalyzer{summary: insight.Summary{
			Sentiment: insight.SentimentNegative,
			Tone:      "Frustrated",
			Intent:    "Expressing dissatisfaction",
		}},
		recommender: &fakeRecommender{
			terms: "12-month term with a 15% discount",
			payload: "Recommended Terms: 12-month term with a 15% discount\n\n" +
				negotiation.Marker + "\n- Lead with empathy\n- Anchor on value\n\nDone.",
		},
		replier:     &fakeReplier{reply: "I understand, let me see what I can do."},
		transcriber: &fakeTranscriber{},
		summarizer:  &fakeSummarizer{},
	}
	fx.orch = NewOrchestrator(
		conv, inter,
		fx.transcriber, fx.analyzer, fx.recommender, fx.replier, fx.summarizer,
		testMetrics, logger.New(),
	)
	if err := fx.orch.StartCall(); err != nil {
		t.Fatalf("StartCall() error = %v", err)
	}
	return fx
}

func segment(text string) Segment {
	return Segment{Audio: []byte(text), MIME: "audio/wav"}
}

func TestProcessTurnOrdinary(t *testing.T) {
	fx := newFixture(t)

	res, err := fx.orch.ProcessTurn(context.Background(), 1, segment("The price is too high for this contract."))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if res.Ended {
		t.Fatalf("Ended = true for ordinary turn")
	}
	if res.Sentiment != "Negative" {
		t.Fatalf("Sentiment = %q, want Negative", res.Sentiment)
	}
	if res.RecommendedTerms != fx.recommender.terms {
		t.Fatalf("RecommendedTerms = %q", res.RecommendedTerms)
	}
	if res.NegotiationTips != "Lead with empathy\nAnchor on value" {
		t.Fatalf("NegotiationTips = %q", res.NegotiationTips)
	}
	if res.AIResponse != fx.replier.reply {
		t.Fatalf("AIResponse = %q", res.AIResponse)
	}

	entries, err := fx.conv.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("conversation log has %d entries, want 2: %v", len(entries), entries)
	}
	if entries[0].Speaker != convlog.SpeakerUser || entries[0].Message != "The price is too high for this contract." {
		t.Fatalf("entry[0] = %+v", entries[0])
	}
	if entries[1].Speaker != convlog.SpeakerAI || entries[1].Message != fx.replier.reply {
		t.Fatalf("entry[1] = %+v", entries[1])
	}

	next, err := fx.inter.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if next != 2 {
		t.Fatalf("NextID() after one turn = %d, want 2", next)
	}

	// Both downstream collaborators see the exact analysis values.
	if fx.recommender.lastReq.Summary != fx.analyzer.summary {
		t.Fatalf("recommender summary = %+v, want %+v", fx.recommender.lastReq.Summary, fx.analyzer.summary)
	}
	if fx.recommender.lastReq.CustomerID != 1 {
		t.Fatalf("recommender customerID = %d, want 1", fx.recommender.lastReq.CustomerID)
	}
	if fx.replier.lastReq.Summary != fx.analyzer.summary {
		t.Fatalf("replier summary = %+v, want %+v", fx.replier.lastReq.Summary, fx.analyzer.summary)
	}
	if fx.replier.lastReq.RecommendedTerms != fx.recommender.terms {
		t.Fatalf("replier terms = %q, want %q", fx.replier.lastReq.RecommendedTerms, fx.recommender.terms)
	}

	if len(fx.summarizer.calls) != 0 {
		t.Fatalf("summarizer called on ordinary turn")
	}
}

func TestProcessTurnSequentialIDs(t *testing.T) {
	fx := newFixture(t)

	for i := 0; i < 3; i++ {
		if _, err := fx.orch.ProcessTurn(context.Background(), 1, segment(fmt.Sprintf("Turn number %d, please.", i))); err != nil {
			t.Fatalf("ProcessTurn(%d) error = %v", i, err)
		}
	}

	next, err := fx.inter.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if next != 4 {
		t.Fatalf("NextID() after 3 turns = %d, want 4", next)
	}
}

func TestProcessTurnExit(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.orch.ProcessTurn(context.Background(), 3, segment("I think the price is fair.")); err != nil {
		t.Fatalf("setup turn error = %v", err)
	}
	fx.recommender.calls = 0

	res, err := fx.orch.ProcessTurn(context.Background(), 3, segment("Thanks, that's all, I need to exit now."))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !res.Ended {
		t.Fatalf("Ended = false for terminal turn")
	}
	if res.AIResponse != GoodbyeMessage {
		t.Fatalf("AIResponse = %q, want %q", res.AIResponse, GoodbyeMessage)
	}
	if res.RecommendedTerms != "" || res.NegotiationTips != "" {
		t.Fatalf("terminal turn carries recommendation: %+v", res)
	}
	if fx.recommender.calls != 0 {
		t.Fatalf("recommender called on terminal turn")
	}

	entries, err := fx.conv.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	last := entries[len(entries)-1]
	if last.Speaker != convlog.SpeakerAI || last.Message != GoodbyeMessage {
		t.Fatalf("last entry = %+v, want goodbye", last)
	}
	prev := entries[len(entries)-2]
	if prev.Speaker != convlog.SpeakerUser || !strings.Contains(prev.Message, "exit") {
		t.Fatalf("exit utterance missing from transcript: %+v", prev)
	}

	// The terminal turn writes no interaction record.
	next, err := fx.inter.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if next != 2 {
		t.Fatalf("NextID() = %d, want 2 (one ordinary turn only)", next)
	}

	if len(fx.summarizer.calls) != 1 {
		t.Fatalf("summarizer called %d times, want 1", len(fx.summarizer.calls))
	}
	call := fx.summarizer.calls[0]
	if call.customerID != 3 {
		t.Fatalf("summary customerID = %d, want 3", call.customerID)
	}
	for _, want := range []string{
		"User: I think the price is fair.",
		"User: Thanks, that's all, I need to exit now.",
		"AI: " + GoodbyeMessage,
	} {
		if !strings.Contains(call.transcript, want) {
			t.Fatalf("summary transcript missing %q:\n%s", want, call.transcript)
		}
	}
}

func TestExitDetectionIsCaseInsensitive(t *testing.T) {
	for _, utterance := range []string{"EXIT", "Exit, please", "I want to eXiT"} {
		t.Run(utterance, func(t *testing.T) {
			fx := newFixture(t)
			res, err := fx.orch.ProcessTurn(context.Background(), 1, segment(utterance))
			if err != nil {
				t.Fatalf("ProcessTurn(%q) error = %v", utterance, err)
			}
			if !res.Ended {
				t.Fatalf("ProcessTurn(%q).Ended = false", utterance)
			}
		})
	}
}

func TestExitDetectionMatchesSubstring(t *testing.T) {
	// Embedded occurrences end the call too; the marker is a substring match.
	fx := newFixture(t)
	res, err := fx.orch.ProcessTurn(context.Background(), 1, segment("Where is the nearest exits sign?"))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !res.Ended {
		t.Fatalf("Ended = false, want substring match to end the call")
	}
}

func TestProcessTurnTranscriptionFailure(t *testing.T) {
	fx := newFixture(t)
	fx.transcriber.err = errors.New("upstream unreachable")

	_, err := fx.orch.ProcessTurn(context.Background(), 1, segment("anything"))
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("ProcessTurn() error = %v, want TurnError", err)
	}
	if te.Stage != StageTranscribe {
		t.Fatalf("Stage = %q, want %q", te.Stage, StageTranscribe)
	}

	entries, readErr := fx.conv.ReadAll()
	if readErr != nil {
		t.Fatalf("ReadAll() error = %v", readErr)
	}
	if len(entries) != 0 {
		t.Fatalf("conversation log has %d entries after transcription failure, want 0", len(entries))
	}
}

func TestProcessTurnAnalysisFailureKeepsUserEntry(t *testing.T) {
	fx := newFixture(t)
	fx.analyzer.audioErr = errors.New("model overloaded")

	_, err := fx.orch.ProcessTurn(context.Background(), 1, segment("Tell me about my options."))
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("ProcessTurn() error = %v, want TurnError", err)
	}
	if te.Stage != StageAnalyze {
		t.Fatalf("Stage = %q, want %q", te.Stage, StageAnalyze)
	}

	entries, readErr := fx.conv.ReadAll()
	if readErr != nil {
		t.Fatalf("ReadAll() error = %v", readErr)
	}
	if len(entries) != 1 {
		t.Fatalf("conversation log has %d entries, want 1 (user entry stays)", len(entries))
	}
	if entries[0].Speaker != convlog.SpeakerUser {
		t.Fatalf("entry[0].Speaker = %q, want User", entries[0].Speaker)
	}

	next, idErr := fx.inter.NextID(context.Background())
	if idErr != nil {
		t.Fatalf("NextID() error = %v", idErr)
	}
	if next != 1 {
		t.Fatalf("NextID() = %d, want 1 (no record appended)", next)
	}
}

func TestProcessTurnReplyFailureKeepsInteractionRecord(t *testing.T) {
	fx := newFixture(t)
	fx.replier.err = errors.New("gateway timeout")

	_, err := fx.orch.ProcessTurn(context.Background(), 1, segment("Can you lower the rate?"))
	var te *TurnError
	if !errors.As(err, &te) {
		t.Fatalf("ProcessTurn() error = %v, want TurnError", err)
	}
	if te.Stage != StageReply {
		t.Fatalf("Stage = %q, want %q", te.Stage, StageReply)
	}

	// Stages before the failure already flushed durably.
	next, idErr := fx.inter.NextID(context.Background())
	if idErr != nil {
		t.Fatalf("NextID() error = %v", idErr)
	}
	if next != 2 {
		t.Fatalf("NextID() = %d, want 2 (record for the failed turn stays)", next)
	}
	entries, readErr := fx.conv.ReadAll()
	if readErr != nil {
		t.Fatalf("ReadAll() error = %v", readErr)
	}
	if len(entries) != 1 || entries[0].Speaker != convlog.SpeakerUser {
		t.Fatalf("conversation log = %v, want only the user entry", entries)
	}
}

func TestExitAnalysisFailureStillEndsCall(t *testing.T) {
	fx := newFixture(t)
	fx.analyzer.textErr = errors.New("model overloaded")

	res, err := fx.orch.ProcessTurn(context.Background(), 1, segment("Goodbye, I have to exit."))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !res.Ended {
		t.Fatalf("Ended = false, want terminal turn to complete despite analysis failure")
	}
	if len(fx.summarizer.calls) != 0 {
		t.Fatalf("summarizer called despite analysis failure")
	}
}

func TestExitSummaryFailureStillEndsCall(t *testing.T) {
	fx := newFixture(t)
	fx.summarizer.err = errors.New("gateway down")

	res, err := fx.orch.ProcessTurn(context.Background(), 1, segment("exit"))
	if err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if !res.Ended || res.AIResponse != GoodbyeMessage {
		t.Fatalf("ProcessTurn() = %+v, want ended with goodbye", res)
	}
}

func TestStartCallResetsTranscript(t *testing.T) {
	fx := newFixture(t)

	if _, err := fx.orch.ProcessTurn(context.Background(), 1, segment("First call chatter.")); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}
	if err := fx.orch.StartCall(); err != nil {
		t.Fatalf("StartCall() error = %v", err)
	}

	transcript, err := fx.orch.Transcript()
	if err != nil {
		t.Fatalf("Transcript() error = %v", err)
	}
	if transcript != "" {
		t.Fatalf("Transcript() after StartCall = %q, want empty", transcript)
	}
}

func TestEventsPublishedPerTurn(t *testing.T) {
	fx := newFixture(t)
	events, unsub := fx.orch.Events().Subscribe()
	defer unsub()

	if _, err := fx.orch.ProcessTurn(context.Background(), 1, segment("How about the contract?")); err != nil {
		t.Fatalf("ProcessTurn() error = %v", err)
	}

	first := <-events
	if first.Type != EventUserUtterance {
		t.Fatalf("first event = %q, want %q", first.Type, EventUserUtterance)
	}
	second := <-events
	if second.Type != EventAssistantTurn {
		t.Fatalf("second event = %q, want %q", second.Type, EventAssistantTurn)
	}
	if second.AIResponse != fx.replier.reply {
		t.Fatalf("event AIResponse = %q", second.AIResponse)
	}
}
