// Package gateway implements the external collaborators (transcription,
// analysis, recommendation, reply generation, post-call summary) against an
// OpenAI-style chat gateway and a transcription service, plus deterministic
// mocks for offline runs. Prompt content is owned here, not by the pipeline.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Config carries the gateway endpoints and credentials.
type Config struct {
	LLMGatewayURL string
	LLMAPIKey     string
	LLMModel      string
	TranscribeURL string
}

// LLM is a minimal chat-completions client shared by the text collaborators.
type LLM struct {
	url    string
	key    string
	model  string
	client *http.Client
}

func NewLLM(cfg Config) *LLM {
	return &LLM{
		url:    cfg.LLMGatewayURL,
		key:    cfg.LLMAPIKey,
		model:  cfg.LLMModel,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type       string      `json:"type"`
	Text       string      `json:"text,omitempty"`
	InputAudio *inputAudio `json:"input_audio,omitempty"`
}

type inputAudio struct {
	Data   string `json:"data"`
	Format string `json:"format"`
}

// complete sends a system+user prompt pair and returns the first choice's
// content. Server errors and transport failures are retried with exponential
// backoff; 4xx responses are not, since resending the same request cannot fix
// them.
func (l *LLM) complete(ctx context.Context, system, user string) (string, error) {
	return l.chat(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
}

// completeWithAudio attaches one audio segment to the user message.
func (l *LLM) completeWithAudio(ctx context.Context, system, user string, audio []byte, format string) (string, error) {
	if format == "" {
		format = "wav"
	}
	return l.chat(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: []contentPart{
			{Type: "text", Text: user},
			{Type: "input_audio", InputAudio: &inputAudio{
				Data:   base64.StdEncoding.EncodeToString(audio),
				Format: format,
			}},
		}},
	})
}

func (l *LLM) chat(ctx context.Context, messages []chatMessage) (string, error) {
	if l.url == "" || l.key == "" {
		return "", fmt.Errorf("llm gateway not configured")
	}
	body, err := json.Marshal(map[string]any{
		"model":       l.model,
		"messages":    messages,
		"temperature": 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	var out string
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.url, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+l.key)

		resp, err := l.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if resp.StatusCode >= 500 {
			return fmt.Errorf("llm server error: status %d: %s", resp.StatusCode, truncate(raw, 512))
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("llm request rejected: status %d: %s", resp.StatusCode, truncate(raw, 512)))
		}

		var parsed struct {
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
			} `json:"choices"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return backoff.Permanent(fmt.Errorf("decode chat response: %w", err))
		}
		if len(parsed.Choices) == 0 {
			return backoff.Permanent(fmt.Errorf("chat response has no choices"))
		}
		out = parsed.Choices[0].Message.Content
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 20 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return "", err
	}
	return out, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
