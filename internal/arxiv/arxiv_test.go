package arxiv

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title type="html">ArXiv Query</title>
  <id>http://arxiv.org/api/query</id>
  <entry>
    <id>http://arxiv.org/abs/2401.01234v1</id>
    <published>2024-01-04T18:59:59Z</published>
    <title>Agents &amp; Tools:
      A   Survey</title>
    <summary>  We study &lt;things&gt; and
      &quot;stuff&quot; that &apos;matters&apos;.
    </summary>
    <author><name>Ada Lovelace</name></author>
    <author><name>Alan Turing</name></author>
  </entry>
  <entry>
    <id>no-slash-id</id>
    <title>Second</title>
  </entry>
</feed>`

func TestFetchParsesEntries(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		if r.URL.Query().Get("sortBy") != "submittedDate" || r.URL.Query().Get("sortOrder") != "descending" {
			t.Errorf("unexpected sort params: %s", r.URL.RawQuery)
		}
		if r.URL.Query().Get("max_results") != "2" {
			t.Errorf("unexpected max_results: %s", r.URL.Query().Get("max_results"))
		}
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 0)
	papers, err := c.Fetch(context.Background(), []string{"cs.AI", "cs.LG"}, 2)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if gotQuery != "cat:cs.AI OR cat:cs.LG" {
		t.Fatalf("unexpected query %q", gotQuery)
	}
	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}
	p := papers[0]
	if p.ID != "http://arxiv.org/abs/2401.01234v1" || p.ArxivID != "2401.01234v1" {
		t.Fatalf("unexpected ids %q %q", p.ID, p.ArxivID)
	}
	if p.Title != "Agents & Tools: A Survey" {
		t.Fatalf("unexpected title %q", p.Title)
	}
	if p.Summary != `We study <things> and "stuff" that 'matters'.` {
		t.Fatalf("unexpected summary %q", p.Summary)
	}
	if p.Published != "2024-01-04T18:59:59Z" {
		t.Fatalf("unexpected published %q", p.Published)
	}
	if len(p.Authors) != 2 || p.Authors[0] != "Ada Lovelace" || p.Authors[1] != "Alan Turing" {
		t.Fatalf("unexpected authors %v", p.Authors)
	}

	second := papers[1]
	if second.ArxivID != "no-slash-id" || second.Summary != "" || second.Published != "" || len(second.Authors) != 0 {
		t.Fatalf("unexpected sparse entry %+v", second)
	}
}

func TestFetchNonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Fetch(context.Background(), []string{"cs.AI"}, 5)
	if !errors.Is(err, digest.ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestArxivID(t *testing.T) {
	cases := map[string]string{
		"http://arxiv.org/abs/cs/0112017v1":  "0112017v1",
		"plain":                              "plain",
		"http://arxiv.org/abs/2401.00001v2/": "2401.00001v2",
		"  http://arxiv.org/abs/2401.1v1 ":   "2401.1v1",
		"":                                   "",
		"/":                                  "",
	}
	for in, want := range cases {
		if got := ArxivID(in); got != want {
			t.Fatalf("ArxivID(%q) = %q, want %q", in, got, want)
		}
	}
}

func serveBody(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/atom+xml")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const truncatedFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom" xmlns:arxiv="http://arxiv.org/schemas/atom">
  <title>ArXiv Query</title>
  <entry>
    <id>http://arxiv.org/abs/2401.00001v1</id>
    <title>Complete Entry</title>
    <summary>Kept.</summary>
    <arxiv:primary_category term="cs.AI"/>
    <author><name>Ada Lovelace</name></author>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2401.00002v1</id>
    <title>Cut off mid`

func TestFetchTruncatedBodyKeepsCompleteEntries(t *testing.T) {
	srv := serveBody(t, truncatedFeed)

	papers, err := NewClient(srv.URL, 0).Fetch(context.Background(), []string{"cs.AI"}, 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 1 {
		t.Fatalf("expected the one complete entry, got %+v", papers)
	}
	if papers[0].ArxivID != "2401.00001v1" || papers[0].Title != "Complete Entry" || papers[0].Summary != "Kept." {
		t.Fatalf("unexpected paper %+v", papers[0])
	}
	if len(papers[0].Authors) != 1 || papers[0].Authors[0] != "Ada Lovelace" {
		t.Fatalf("unexpected authors %v", papers[0].Authors)
	}
}

func TestFetchUnparseableBodyIsEmpty(t *testing.T) {
	srv := serveBody(t, "<html><body>maintenance</body")

	papers, err := NewClient(srv.URL, 0).Fetch(context.Background(), []string{"cs.AI"}, 5)
	if err != nil {
		t.Fatalf("a 2xx body should not fail the fetch: %v", err)
	}
	if len(papers) != 0 {
		t.Fatalf("expected no papers, got %+v", papers)
	}
}

func TestFetchSkipsEntriesWithoutArxivID(t *testing.T) {
	srv := serveBody(t, `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry><title>No id</title></entry>
  <entry><id>http://arxiv.org/abs/2401.00003v1/</id><title>Trailing slash</title></entry>
  <entry><id>/</id><title>Only slash</title></entry>
</feed>`)

	papers, err := NewClient(srv.URL, 0).Fetch(context.Background(), []string{"cs.AI"}, 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(papers) != 1 || papers[0].ArxivID != "2401.00003v1" || papers[0].Title != "Trailing slash" {
		t.Fatalf("expected only the trailing-slash entry, got %+v", papers)
	}
	emptyRepo, _ := digest.ImageFile("")
	if repoPath, _ := digest.ImageFile(papers[0].ArxivID); repoPath == emptyRepo {
		t.Fatalf("paper %q maps to an empty asset name", papers[0].ID)
	}
}
