package main

import (
	"strings"
	"testing"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

func TestRenderResult(t *testing.T) {
	img := "/static/agent/images/2401-1v1.svg"
	out := renderResult(&digest.CollectResult{
		DryRun:   true,
		NoteFile: "content/notes/arxiv-digest-2024-01-05-0930.md",
		Papers: []digest.PaperResult{
			{ArxivID: "2401.1v1", Title: strings.Repeat("Long title ", 10), ImagePath: &img},
			{ArxivID: "2401.2v1", Title: "Short"},
		},
		Warnings: []string{"TTS not configured; audio skipped"},
	})
	for _, want := range []string{"2401.1v1", img, "Short", "note: content/notes/arxiv-digest-2024-01-05-0930.md (dry run)", "warning: TTS not configured; audio skipped"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, strings.Repeat("Long title ", 10)) {
		t.Fatalf("long titles should be truncated")
	}
}
