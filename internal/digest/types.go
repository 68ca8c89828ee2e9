// Package digest holds the data threaded through a digest run: feed papers, model summaries,
// processed entries, the run record and the resolved caller identity.
package digest

import "encoding/json"

// Paper is one feed entry. It is not modified after fetching.
type Paper struct {
	ID        string   `json:"id"`
	ArxivID   string   `json:"arxivId"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Published string   `json:"published"`
	Authors   []string `json:"authors"`
}

// Summary is the language-model output for one paper.
type Summary struct {
	Summary      string   `json:"summary"`
	Takeaways    []string `json:"takeaways"`
	Conclusion   string   `json:"conclusion"`
	ParseWarning bool     `json:"parseWarning,omitempty"`
}

// ProcessedPaper joins a paper with its summary and the public paths of generated assets.
// In dry-run mode the paths are set even though nothing was committed.
type ProcessedPaper struct {
	Paper
	Summary   Summary
	ImagePath *string
	AudioPath *string
}

// Audio is a synthesized narration.
type Audio struct {
	Data []byte
	Ext  string
}

// AuthMode names the credential scheme that authenticated a caller.
type AuthMode string

const (
	AuthModeToken    AuthMode = "token"
	AuthModeSupabase AuthMode = "supabase"
)

// AuthContext is the resolved caller identity. Email is empty in token mode.
type AuthContext struct {
	Mode   AuthMode
	UserID string
	Email  string
}

// Attributable reports whether runs by this caller are recorded.
func (a AuthContext) Attributable() bool { return a.Mode == AuthModeSupabase }

// Run statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PaperRef is the reduced paper view stored with a run record.
type PaperRef struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	ArxivID string `json:"arxivId"`
}

// RunRecord captures one pipeline execution.
type RunRecord struct {
	ID            string
	UserID        string
	UserEmail     string
	Categories    []string
	MaxResults    int
	IncludeAudio  bool
	IncludeImages bool
	DryRun        bool
	NoteFile      string
	Warnings      []string
	Papers        []PaperRef
	Status        string
}

// CollectRequest is the validated input of one run.
type CollectRequest struct {
	Categories    []string
	MaxResults    int
	IncludeAudio  bool
	IncludeImages bool
	DryRun        bool
	Title         string
}

// PaperResult is the per-paper entry of a run result.
type PaperResult struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	ArxivID   string  `json:"arxivId"`
	ImagePath *string `json:"imagePath"`
	AudioPath *string `json:"audioPath"`
}

// CollectResult is the outcome of a successful run. CommitInfo is nil in dry-run mode.
type CollectResult struct {
	AuthMode   AuthMode        `json:"authMode"`
	DryRun     bool            `json:"dryRun"`
	NoteFile   string          `json:"noteFile"`
	CommitInfo json.RawMessage `json:"commitInfo"`
	Papers     []PaperResult   `json:"papers"`
	Warnings   []string        `json:"warnings"`
}
