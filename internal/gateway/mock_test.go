package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/ecanzonieri/pitchline/internal/assist"
	"github.com/ecanzonieri/pitchline/internal/insight"
	"github.com/ecanzonieri/pitchline/internal/negotiation"
)

func TestMockTranscribePassesTextThrough(t *testing.T) {
	m := NewMock()
	got, err := m.Transcribe(context.Background(), assist.Segment{Audio: []byte("hello there")})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if got != "hello there" {
		t.Fatalf("Transcribe() = %q", got)
	}
}

func TestMockTranscribeEmptySegment(t *testing.T) {
	m := NewMock()
	if _, err := m.Transcribe(context.Background(), assist.Segment{}); err == nil {
		t.Fatalf("Transcribe() on empty segment: want error")
	}
}

func TestMockAnalyzeTextHeuristics(t *testing.T) {
	m := NewMock()
	cases := []struct {
		text string
		want insight.Sentiment
	}{
		{"This is too expensive for us", insight.SentimentNegative},
		{"Thank you so much, that's great", insight.SentimentPositive},
		{"When does the contract start?", insight.SentimentNeutral},
	}
	for _, tc := range cases {
		got, err := m.AnalyzeText(context.Background(), tc.text)
		if err != nil {
			t.Fatalf("AnalyzeText(%q) error = %v", tc.text, err)
		}
		if got.Sentiment != tc.want {
			t.Fatalf("AnalyzeText(%q).Sentiment = %q, want %q", tc.text, got.Sentiment, tc.want)
		}
		if got.Tone == "" || got.Intent == "" {
			t.Fatalf("AnalyzeText(%q) left tone or intent empty: %+v", tc.text, got)
		}
	}
}

func TestMockRecommendPayloadHasTipSection(t *testing.T) {
	m := NewMock()
	rec, err := m.Recommend(context.Background(), assist.RecommendRequest{CustomerID: 1})
	if err != nil {
		t.Fatalf("Recommend() error = %v", err)
	}
	if rec.Terms == "" {
		t.Fatalf("Recommend() returned empty terms")
	}
	if !strings.Contains(rec.Payload, negotiation.Marker) {
		t.Fatalf("payload missing tip section:\n%s", rec.Payload)
	}
	tips := negotiation.ExtractTips(rec.Payload)
	if len(tips) != 3 {
		t.Fatalf("ExtractTips() returned %d tips, want 3: %v", len(tips), tips)
	}
}

func TestMockReplyMentionsTerms(t *testing.T) {
	m := NewMock()
	out, err := m.Reply(context.Background(), assist.ReplyRequest{
		RecommendedTerms: "a 10% discount",
		Summary:          insight.Summary{Sentiment: insight.SentimentNegative},
	})
	if err != nil {
		t.Fatalf("Reply() error = %v", err)
	}
	if !strings.Contains(out, "a 10% discount") {
		t.Fatalf("Reply() = %q, want terms mentioned", out)
	}
}
