// Package arxiv fetches recent papers from the arXiv export API.
package arxiv

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed/atom"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

const DefaultEndpoint = "https://export.arxiv.org/api/query"

// Client queries the arXiv Atom API.
type Client struct {
	endpoint   string
	httpClient *http.Client
	parser     *atom.Parser
}

// NewClient creates a feed client. An empty endpoint selects the public export API.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if strings.TrimSpace(endpoint) == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: timeout},
		parser:     &atom.Parser{},
	}
}

// BuildQuery joins categories into a single OR query.
func BuildQuery(categories []string) string {
	terms := make([]string, 0, len(categories))
	for _, cat := range categories {
		terms = append(terms, "cat:"+cat)
	}
	return strings.Join(terms, " OR ")
}

// Fetch returns the newest submissions in the given categories, newest first.
func (c *Client) Fetch(ctx context.Context, categories []string, maxResults int) ([]digest.Paper, error) {
	params := url.Values{}
	params.Set("search_query", BuildQuery(categories))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("max_results", strconv.Itoa(maxResults))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, digest.Errorf(digest.ErrFeedUnavailable, "failed to create request: %v", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, digest.Errorf(digest.ErrFeedUnavailable, "arXiv request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, digest.Errorf(digest.ErrFeedUnavailable, "arXiv request failed: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, digest.Errorf(digest.ErrFeedUnavailable, "failed to read arXiv response: %v", err)
	}

	var entries []*atom.Entry
	if feed, err := c.parser.Parse(bytes.NewReader(body)); err == nil {
		entries = feed.Entries
	} else {
		entries = c.salvageEntries(body)
	}

	papers := make([]digest.Paper, 0, len(entries))
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		p := toPaper(entry)
		if p.ArxivID == "" {
			continue
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// salvageEntries parses each complete <entry> block of a body the feed parser rejected.
// The feed header up to the first entry is reused so namespace declarations still apply.
// Blocks that fail on their own are dropped.
func (c *Client) salvageEntries(body []byte) []*atom.Entry {
	start := bytes.Index(body, []byte("<entry"))
	if start < 0 {
		return nil
	}
	header := body[:start]
	closeTag := []byte("</entry>")

	var entries []*atom.Entry
	rest := body[start:]
	for {
		open := bytes.Index(rest, []byte("<entry"))
		if open < 0 {
			break
		}
		end := bytes.Index(rest[open:], closeTag)
		if end < 0 {
			break
		}
		end += open + len(closeTag)

		doc := make([]byte, 0, len(header)+end-open+len("</feed>"))
		doc = append(doc, header...)
		doc = append(doc, rest[open:end]...)
		doc = append(doc, "</feed>"...)
		if feed, err := c.parser.Parse(bytes.NewReader(doc)); err == nil {
			entries = append(entries, feed.Entries...)
		}
		rest = rest[end:]
	}
	return entries
}

func toPaper(entry *atom.Entry) digest.Paper {
	id := strings.TrimSpace(entry.ID)
	authors := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		if a == nil {
			continue
		}
		authors = append(authors, strings.TrimSpace(a.Name))
	}
	return digest.Paper{
		ID:        id,
		ArxivID:   ArxivID(id),
		Title:     collapse(entry.Title),
		Summary:   collapse(entry.Summary),
		Published: strings.TrimSpace(entry.Published),
		Authors:   authors,
	}
}

// ArxivID returns the final path segment of a feed id, or the id itself when it has none.
// Trailing slashes are ignored.
func ArxivID(id string) string {
	id = strings.TrimRight(strings.TrimSpace(id), "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		return id[i+1:]
	}
	return id
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }
