package digest

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Defaults applied when a request leaves them out.
const (
	DefaultCategory   = "cs.AI"
	DefaultMaxResults = 5
)

// DefaultCategories returns a fresh copy of the default category list.
func DefaultCategories() []string { return []string{DefaultCategory} }

const (
	noteDir        = "content/notes"
	imageRepoDir   = "quartz/static/agent/images"
	audioRepoDir   = "quartz/static/agent/audio"
	imagePublicDir = "/static/agent/images"
	audioPublicDir = "/static/agent/audio"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lower-cases s, replaces every run of non-alphanumeric characters with a single
// hyphen and trims hyphens from both ends.
func Slugify(s string) string {
	return strings.Trim(nonAlnum.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format("2006-01-02") }

// DefaultTitle is the note title used when the request does not carry one.
func DefaultTitle(t time.Time) string { return "arXiv Digest " + FormatDate(t) }

// NotePath is the repository path of a digest note: content/notes/<slug>-<HHMM>.md.
func NotePath(title string, t time.Time) string {
	return fmt.Sprintf("%s/%s-%s.md", noteDir, Slugify(title), t.Format("1504"))
}

// ImageFile returns the repository path and the public path of a paper's cover image.
func ImageFile(arxivID string) (repoPath, publicPath string) {
	slug := Slugify(arxivID)
	return fmt.Sprintf("%s/%s.svg", imageRepoDir, slug), fmt.Sprintf("%s/%s.svg", imagePublicDir, slug)
}

// AudioFile returns the repository path and the public path of a paper's narration.
func AudioFile(arxivID, ext string) (repoPath, publicPath string) {
	slug := Slugify(arxivID)
	return fmt.Sprintf("%s/%s.%s", audioRepoDir, slug, ext), fmt.Sprintf("%s/%s.%s", audioPublicDir, slug, ext)
}
