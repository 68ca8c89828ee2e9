package server

import (
	"io"
	"strings"
	"testing"
)

func TestEmbeddedMigrationsSource(t *testing.T) {
	src, err := embeddedSource()
	if err != nil {
		t.Fatalf("embedded source: %v", err)
	}
	defer src.Close()

	first, err := src.First()
	if err != nil || first != 1 {
		t.Fatalf("expected first version 1, got %d (%v)", first, err)
	}
	r, _, err := src.ReadUp(first)
	if err != nil {
		t.Fatalf("read up: %v", err)
	}
	defer r.Close()
	body, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "agent_runs") {
		t.Fatalf("up migration does not create agent_runs:\n%s", body)
	}
	if _, _, err := src.ReadDown(first); err != nil {
		t.Fatalf("down migration missing: %v", err)
	}
}

func TestMigrateRequiresDSN(t *testing.T) {
	if err := Migrate("", "", "up", 0); err == nil {
		t.Fatalf("expected an error without a DSN")
	}
}
