// Package github publishes files to a repository through the GitHub contents API.
package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

const defaultAPIURL = "https://api.github.com"

// Client creates or updates files on a single branch of a single repository.
type Client struct {
	apiURL     string
	owner      string
	repo       string
	token      string
	branch     string
	userAgent  string
	httpClient *http.Client
}

type putRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

// NewClient builds a publisher from cfg. Missing owner, repo or token is reported on Put.
func NewClient(cfg config.GitHubConfig) *Client {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	branch := cfg.Branch
	if branch == "" {
		branch = "main"
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = "lumen-garden-agent"
	}
	return &Client{
		apiURL:     apiURL,
		owner:      strings.TrimSpace(cfg.Owner),
		repo:       strings.TrimSpace(cfg.Repo),
		token:      strings.TrimSpace(cfg.Token),
		branch:     branch,
		userAgent:  ua,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// Put writes content at path with the given commit message, replacing the existing file
// when there is one. The GitHub response body is returned as commit metadata.
func (c *Client) Put(ctx context.Context, path string, content []byte, message string) (json.RawMessage, error) {
	if c.owner == "" || c.repo == "" || c.token == "" {
		return nil, digest.Errorf(digest.ErrPublishConfigMissing, "GitHub config missing (owner/repo/token)")
	}

	endpoint := c.contentsURL(path)
	sha, err := c.currentSHA(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(putRequest{
		Message: message,
		Content: base64.StdEncoding.EncodeToString(content),
		Branch:  c.branch,
		SHA:     sha,
	})
	if err != nil {
		return nil, fmt.Errorf("encode GitHub request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, digest.Errorf(digest.ErrPublishWriteFailed, "%v", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, digest.Errorf(digest.ErrPublishWriteFailed, "%v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, digest.Errorf(digest.ErrPublishWriteFailed, "read response: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, digest.Errorf(digest.ErrPublishWriteFailed, "GitHub write failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if !json.Valid(body) {
		return json.RawMessage("null"), nil
	}
	return json.RawMessage(body), nil
}

// currentSHA returns the blob sha of the existing file, or "" when it cannot be read.
func (c *Client) currentSHA(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?ref="+url.QueryEscape(c.branch), nil)
	if err != nil {
		return "", digest.Errorf(digest.ErrPublishWriteFailed, "%v", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", digest.Errorf(digest.ErrPublishWriteFailed, "%v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", nil
	}

	var existing struct {
		SHA string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&existing); err != nil {
		return "", nil
	}
	return existing.SHA, nil
}

func (c *Client) contentsURL(path string) string {
	segments := strings.Split(strings.TrimLeft(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.apiURL, c.owner, c.repo, strings.Join(segments, "/"))
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.userAgent)
}
