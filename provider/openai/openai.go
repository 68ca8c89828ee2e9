package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

const (
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/coding/v3"
	DefaultModel   = "ark-code-latest"

	systemPrompt = "You are a precise AI research assistant."
)

// Client summarizes papers through an OpenAI-compatible chat completions API
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	httpClient  *http.Client
	logger      *log.Logger
}

// Message represents a message in a conversation
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// request represents a chat completion request
type request struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// response represents a chat completion response
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewClient creates a summary client. An empty apiKey is accepted; calls then fail with
// digest.ErrSummaryBackendUnavailable.
func NewClient(apiKey, baseURL, model string, temperature float64, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{
		apiKey:      apiKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		model:       model,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log.New(log.Writer(), "[LLM] ", log.LstdFlags),
	}
}

// Summarize asks the model for a structured summary of one paper. A reply that is not a
// summary object is kept as raw text with ParseWarning set.
func (c *Client) Summarize(ctx context.Context, paper digest.Paper) (digest.Summary, error) {
	prompt := fmt.Sprintf(`Summarize the paper for a daily digest.

Title: %s
Authors: %s
Abstract: %s

Return JSON only with:
- summary: 3-5 sentences.
- takeaways: 3-5 bullet points (array of strings).
- conclusion: 1-2 sentences.`, paper.Title, strings.Join(paper.Authors, ", "), paper.Summary)

	messages := []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	}

	raw, err := c.sendRequest(ctx, messages)
	if err != nil {
		return digest.Summary{}, err
	}
	return ParseSummary(raw), nil
}

// ParseSummary decodes a model reply into a Summary, degrading to raw text when the reply
// is not a summary object.
func ParseSummary(raw string) digest.Summary {
	body := unfence(raw)
	if err := validateSummary([]byte(body)); err == nil {
		var out struct {
			Summary    string   `json:"summary"`
			Takeaways  []string `json:"takeaways"`
			Conclusion string   `json:"conclusion"`
		}
		if err := json.Unmarshal([]byte(body), &out); err == nil {
			if out.Takeaways == nil {
				out.Takeaways = []string{}
			}
			return digest.Summary{Summary: out.Summary, Takeaways: out.Takeaways, Conclusion: out.Conclusion}
		}
	}
	return digest.Summary{
		Summary:      strings.TrimSpace(raw),
		Takeaways:    []string{},
		Conclusion:   "",
		ParseWarning: true,
	}
}

// unfence strips a surrounding ```json code fence, which chat models often add.
func unfence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return s
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.Contains(s[:i], "{") {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}

// sendRequest sends a chat completion request and returns the first choice's content
func (c *Client) sendRequest(ctx context.Context, messages []Message) (string, error) {
	if c.apiKey == "" {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "Missing ARK_API_KEY")
	}
	requestBody := request{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "failed to read response body: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "Opencode request failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	c.logger.Printf("model=%s status=%d latency=%s", c.model, resp.StatusCode, time.Since(start).Round(time.Millisecond))

	var chatResp response
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "failed to parse response: %v", err)
	}
	if len(chatResp.Choices) == 0 || strings.TrimSpace(chatResp.Choices[0].Message.Content) == "" {
		return "", digest.Errorf(digest.ErrSummaryBackendUnavailable, "Opencode returned empty response")
	}
	return chatResp.Choices[0].Message.Content, nil
}
