package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

// renderResult formats a run result for a terminal.
func renderResult(res *digest.CollectResult) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "arXiv", "Title", "Image", "Audio"})
	for i, p := range res.Papers {
		tw.AppendRow(table.Row{i + 1, p.ArxivID, truncate(p.Title, 60), orDash(p.ImagePath), orDash(p.AudioPath)})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	var b strings.Builder
	b.WriteString(tw.Render())
	b.WriteString("\n")
	mode := "published"
	if res.DryRun {
		mode = "dry run"
	}
	fmt.Fprintf(&b, "note: %s (%s)\n", res.NoteFile, mode)
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return strings.TrimRight(b.String(), "\n")
}

func orDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
