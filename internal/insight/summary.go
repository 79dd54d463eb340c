package insight

import "strings"

// Sentiment is the coarse polarity label produced by the analyzer.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
	SentimentNeutral  Sentiment = "Neutral"
)

// Summary is one utterance's (or one transcript's) analysis result.
// Tone is a comma-joined label set; Intent is a short free-text phrase.
type Summary struct {
	Sentiment Sentiment `json:"sentiment"`
	Tone      string    `json:"tone"`
	Intent    string    `json:"intent"`
}

// Parse extracts a Summary from the analyzer's labeled output block:
//
//	Sentiment: Negative
//	Tone: Frustrated, Angry
//	Intent: Expressing dissatisfaction
//
// Labels are matched case-insensitively and may appear anywhere in the text;
// later occurrences win. Missing labels leave the field at its zero value.
func Parse(text string) Summary {
	var out Summary
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(strings.TrimSpace(line), "*-"))
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "sentiment:"):
			out.Sentiment = normalizeSentiment(valueAfterLabel(line))
		case strings.HasPrefix(lower, "tone:"):
			out.Tone = valueAfterLabel(line)
		case strings.HasPrefix(lower, "intent:"):
			out.Intent = valueAfterLabel(line)
		}
	}
	return out
}

func valueAfterLabel(line string) string {
	if i := strings.Index(line, ":"); i >= 0 {
		return strings.TrimSpace(line[i+1:])
	}
	return ""
}

func normalizeSentiment(v string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "positive":
		return SentimentPositive
	case "negative":
		return SentimentNegative
	case "neutral":
		return SentimentNeutral
	default:
		// Keep whatever the analyzer said; downstream treats it as a display string.
		return Sentiment(strings.TrimSpace(v))
	}
}
