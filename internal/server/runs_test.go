package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"testing"
	"time"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
	"github.com/mohammad-safakhou/arxiv-digest/internal/store"
)

type stubAuth struct{ id digest.AuthContext }

func (s stubAuth) Resolve(_ context.Context, header string) (digest.AuthContext, error) {
	if header == "" {
		return digest.AuthContext{}, digest.ErrUnauthorized
	}
	return s.id, nil
}

type stubLister struct {
	userID string
	limit  int
}

func (s *stubLister) ListRuns(_ context.Context, userID string, limit int) ([]store.Run, error) {
	s.userID, s.limit = userID, limit
	if userID == "broken" {
		return nil, errors.New("db down")
	}
	return []store.Run{{
		RunRecord: digest.RunRecord{ID: "run-1", UserID: userID, Status: digest.StatusSuccess},
		CreatedAt: time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC),
	}}, nil
}

func TestListRuns(t *testing.T) {
	lister := &stubLister{}
	app := testApp(&countingFeed{}, staticSummarizer{}, &nopPublisher{})
	e := NewRouter(app)
	e.HTTPErrorHandler = ErrorHandler(log.New(io.Discard, "", 0))
	(&RunsHandler{Auth: stubAuth{id: digest.AuthContext{Mode: digest.AuthModeSupabase, UserID: "user-1"}}, Store: lister}).Register(e)

	rec := serve(e, http.MethodGet, "/runs?limit=5", "session", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	runs := body["runs"].([]any)
	if len(runs) != 1 || runs[0].(map[string]any)["createdAt"] != "2024-01-05T09:30:00Z" {
		t.Fatalf("unexpected runs %v", runs)
	}
	if lister.userID != "user-1" || lister.limit != 5 {
		t.Fatalf("lister called with %q/%d", lister.userID, lister.limit)
	}

	if rec := serve(e, http.MethodGet, "/runs", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestListRunsRejectsTokenCallers(t *testing.T) {
	e := NewRouter(testApp(&countingFeed{}, staticSummarizer{}, &nopPublisher{}))
	e.HTTPErrorHandler = ErrorHandler(log.New(io.Discard, "", 0))
	(&RunsHandler{Auth: stubAuth{id: digest.AuthContext{Mode: digest.AuthModeToken, UserID: "token"}}, Store: &stubLister{}}).Register(e)

	if rec := serve(e, http.MethodGet, "/runs", "agent", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
