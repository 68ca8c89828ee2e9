// Package cover renders the fixed-layout SVG cover used for each digest entry.
package cover

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

const maxBylineAuthors = 3

const svgTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<svg width="1200" height="630" viewBox="0 0 1200 630" xmlns="http://www.w3.org/2000/svg">
  <defs>
    <linearGradient id="bg" x1="0" y1="0" x2="1" y2="1">
      <stop offset="0%%" stop-color="#f0f7f6"/>
      <stop offset="100%%" stop-color="#d9e8e6"/>
    </linearGradient>
  </defs>
  <rect width="1200" height="630" fill="url(#bg)"/>
  <rect x="80" y="90" width="1040" height="450" rx="28" fill="#ffffff" opacity="0.85"/>
  <text x="140" y="200" font-family="'Schibsted Grotesk', 'Source Sans Pro', sans-serif" font-size="40" fill="#284b63">AI Paper Digest</text>
  <text x="140" y="270" font-family="'Schibsted Grotesk', 'Source Sans Pro', sans-serif" font-size="36" fill="#2b2b2b">%s</text>
  <text x="140" y="360" font-family="'Source Sans Pro', sans-serif" font-size="26" fill="#4e4e4e">%s</text>
  <text x="140" y="430" font-family="'IBM Plex Mono', monospace" font-size="20" fill="#84a59d">%s</text>
</svg>`

var titleEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;")

// Render returns the SVG cover for paper. It has no side effects.
func Render(paper digest.Paper) []byte {
	return []byte(fmt.Sprintf(svgTemplate, titleEscaper.Replace(paper.Title), Byline(paper.Authors), paper.ArxivID))
}

// Byline lists at most three authors and appends "et al." when there are more.
func Byline(authors []string) string {
	if len(authors) <= maxBylineAuthors {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:maxBylineAuthors], ", ") + " et al."
}
