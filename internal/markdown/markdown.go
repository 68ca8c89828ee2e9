// Package markdown renders the digest note.
package markdown

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

const intro = "Daily arXiv cs.AI digest with summaries, takeaways, and conclusions."

var noteTags = []string{"ai", "arxiv", "digest"}

type frontMatter struct {
	Title string   `yaml:"title"`
	Date  string   `yaml:"date"`
	Tags  []string `yaml:"tags"`
}

// frontMatterOut mirrors frontMatter with the date as a node so a calendar date is written bare.
type frontMatterOut struct {
	Title string    `yaml:"title"`
	Date  yaml.Node `yaml:"date"`
	Tags  []string  `yaml:"tags"`
}

func dateNode(date string) yaml.Node {
	n := yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: date}
	if _, err := time.Parse("2006-01-02", date); err == nil {
		n.Tag = "!!timestamp"
	}
	return n
}

// Compose renders the note for papers in the given order. The output depends only on its
// arguments.
func Compose(papers []digest.ProcessedPaper, title, date string) string {
	var lines []string
	lines = append(lines, "---")
	lines = append(lines, renderFrontMatter(title, date)...)
	lines = append(lines, "---", "", intro, "")

	for _, p := range papers {
		lines = append(lines, "## "+p.Title, "")
		if p.ImagePath != nil && *p.ImagePath != "" {
			lines = append(lines, "![cover]("+*p.ImagePath+")", "")
		}
		lines = append(lines,
			"- Link: "+p.ID,
			"- Authors: "+strings.Join(p.Authors, ", "),
			"- Published: "+p.Published,
			"",
			p.Summary.Summary,
			"",
		)
		if len(p.Summary.Takeaways) > 0 {
			lines = append(lines, "**Key takeaways**")
			for _, item := range p.Summary.Takeaways {
				lines = append(lines, "- "+item)
			}
			lines = append(lines, "")
		}
		if p.Summary.Conclusion != "" {
			lines = append(lines, "**Conclusion**", p.Summary.Conclusion, "")
		}
		if p.AudioPath != nil && *p.AudioPath != "" {
			lines = append(lines, `<audio controls src="`+*p.AudioPath+`"></audio>`, "")
		}
	}
	return strings.Join(lines, "\n")
}

func renderFrontMatter(title, date string) []string {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(frontMatterOut{Title: title, Date: dateNode(date), Tags: noteTags}); err != nil {
		// plain fallback; encoding a struct of strings does not fail in practice
		return []string{"title: " + title, "date: " + date, "tags:", "  - ai", "  - arxiv", "  - digest"}
	}
	_ = enc.Close()
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}
