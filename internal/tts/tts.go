// Package tts synthesizes narration for digest entries through an optional HTTP backend.
package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

// Client calls a text-to-speech backend. A client without URL or key is valid and
// synthesizes nothing.
type Client struct {
	url        string
	apiKey     string
	voice      string
	format     string
	httpClient *http.Client
}

type request struct {
	Text   string `json:"text"`
	Voice  string `json:"voice"`
	Format string `json:"format"`
}

// envelope lists the field names backends use for base64 audio, in lookup order.
type envelope struct {
	AudioBase64 string `json:"audioBase64"`
	Audio       string `json:"audio"`
	Data        string `json:"data"`
}

func (e envelope) payload() string {
	switch {
	case e.AudioBase64 != "":
		return e.AudioBase64
	case e.Audio != "":
		return e.Audio
	default:
		return e.Data
	}
}

// NewClient creates a narration client.
func NewClient(url, apiKey, voice, format string, timeout time.Duration) *Client {
	if voice == "" {
		voice = "neutral"
	}
	if format == "" {
		format = "mp3"
	}
	return &Client{
		url:        strings.TrimSpace(url),
		apiKey:     strings.TrimSpace(apiKey),
		voice:      voice,
		format:     format,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether the backend endpoint and credential are present.
func (c *Client) Configured() bool { return c != nil && c.url != "" && c.apiKey != "" }

// NarrationText is the text read aloud for a paper.
func NarrationText(paper digest.Paper, summary digest.Summary) string {
	return strings.TrimSpace(fmt.Sprintf("%s. %s %s", paper.Title, summary.Summary, summary.Conclusion))
}

// Synthesize returns the narration for paper, or nil when the backend is not configured
// or there is nothing to read.
func (c *Client) Synthesize(ctx context.Context, paper digest.Paper, summary digest.Summary) (*digest.Audio, error) {
	if !c.Configured() {
		return nil, nil
	}
	text := NarrationText(paper, summary)
	if text == "" {
		return nil, nil
	}

	body, err := json.Marshal(request{Text: text, Voice: c.voice, Format: c.format})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, digest.Errorf(digest.ErrAudioBackendFailure, "failed to create request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, digest.Errorf(digest.ErrAudioBackendFailure, "TTS request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, digest.Errorf(digest.ErrAudioBackendFailure, "failed to read TTS response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, digest.Errorf(digest.ErrAudioBackendFailure, "TTS request failed: %d %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "audio/") {
		return &digest.Audio{Data: data, Ext: "mp3"}, nil
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, digest.Errorf(digest.ErrAudioResponseMalformed, "TTS response is neither audio nor JSON: %v", err)
	}
	encoded := env.payload()
	if encoded == "" {
		return nil, digest.Errorf(digest.ErrAudioResponseMalformed, "TTS response missing audio data")
	}
	audio, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, digest.Errorf(digest.ErrAudioResponseMalformed, "TTS audio is not valid base64: %v", err)
	}
	return &digest.Audio{Data: audio, Ext: "mp3"}, nil
}
