package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/ecanzonieri/pitchline/internal/assist"
)

// Transcriber posts one audio segment to the transcription service. Each
// segment is sent exactly once: a silent retry could double-charge the
// provider and cannot repair a genuinely corrupt recording, so failures
// surface to the caller instead.
type Transcriber struct {
	url    string
	client *http.Client
}

func NewTranscriber(cfg Config) *Transcriber {
	return &Transcriber{
		url:    strings.TrimRight(cfg.TranscribeURL, "/"),
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *Transcriber) Transcribe(ctx context.Context, seg assist.Segment) (string, error) {
	if t.url == "" {
		return "", fmt.Errorf("%w: TRANSCRIBE_URL not set", assist.ErrTranscription)
	}
	if len(seg.Audio) == 0 {
		return "", fmt.Errorf("%w: empty audio segment", assist.ErrTranscription)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="audio"; filename="segment.wav"`)
	mime := seg.MIME
	if mime == "" {
		mime = "audio/wav"
	}
	hdr.Set("Content-Type", mime)
	part, err := w.CreatePart(hdr)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", assist.ErrTranscription, err)
	}
	if _, err := part.Write(seg.Audio); err != nil {
		return "", fmt.Errorf("%w: build request: %v", assist.ErrTranscription, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("%w: build request: %v", assist.ErrTranscription, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url+"/transcribe", &body)
	if err != nil {
		return "", fmt.Errorf("%w: create request: %v", assist.ErrTranscription, err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", assist.ErrTranscription, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d: %s", assist.ErrTranscription, resp.StatusCode, truncate(raw, 512))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", assist.ErrTranscription, err)
	}
	text := strings.TrimSpace(parsed.Text)
	if text == "" {
		// The segment carried audio, so an empty transcript means the service
		// failed, not that the user said nothing.
		return "", fmt.Errorf("%w: empty transcript for non-silent segment", assist.ErrTranscription)
	}
	return text, nil
}
