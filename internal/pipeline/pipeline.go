// Package pipeline runs one digest collection: fetch, summarize, render assets, compose the
// note, publish it and record the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mohammad-safakhou/arxiv-digest/internal/cover"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
	"github.com/mohammad-safakhou/arxiv-digest/internal/markdown"
	"github.com/mohammad-safakhou/arxiv-digest/internal/telemetry"
)

// FeedClient fetches candidate papers.
type FeedClient interface {
	Fetch(ctx context.Context, categories []string, maxResults int) ([]digest.Paper, error)
}

// Summarizer produces the model summary of a paper.
type Summarizer interface {
	Summarize(ctx context.Context, paper digest.Paper) (digest.Summary, error)
}

// Narrator synthesizes audio. A nil *digest.Audio with a nil error means narration is not
// available for this paper.
type Narrator interface {
	Synthesize(ctx context.Context, paper digest.Paper, summary digest.Summary) (*digest.Audio, error)
}

// Publisher writes a file to the content repository.
type Publisher interface {
	Put(ctx context.Context, path string, content []byte, message string) (json.RawMessage, error)
}

// RunRecorder stores run records on a best-effort basis.
type RunRecorder interface {
	Record(ctx context.Context, rec digest.RunRecord)
}

// Deps are the collaborators of an Orchestrator. Narrator, Runs and Metrics may be nil.
type Deps struct {
	Feed      FeedClient
	Summaries Summarizer
	Narrator  Narrator
	Publisher Publisher
	Runs      RunRecorder
	Metrics   *telemetry.Metrics
}

// Warning texts attached to results.
const (
	WarnTTSNotConfigured = "TTS not configured; audio skipped"
)

// Orchestrator drives the digest pipeline. It processes papers strictly in feed order, one
// external call at a time.
type Orchestrator struct {
	deps   Deps
	now    func() time.Time
	logger *log.Logger
}

// New creates an orchestrator.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{
		deps:   deps,
		now:    time.Now,
		logger: log.New(log.Writer(), "[PIPELINE] ", log.LstdFlags),
	}
}

// SetClock overrides the time source used for note titles and paths.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// SetLogger overrides the diagnostics logger.
func (o *Orchestrator) SetLogger(l *log.Logger) {
	if l != nil {
		o.logger = l
	}
}

// run is the mutable state of a single execution.
type run struct {
	id        string
	auth      digest.AuthContext
	req       digest.CollectRequest
	warnings  []string
	processed []digest.ProcessedPaper
	stage     string
}

// Run executes the pipeline for an authenticated caller. Summary, image and publish failures
// abort the run; narration failures become warnings. Attributable callers get exactly one
// run record, success or error.
func (o *Orchestrator) Run(ctx context.Context, auth digest.AuthContext, req digest.CollectRequest) (*digest.CollectResult, error) {
	started := time.Now()
	r := &run{id: uuid.NewString(), auth: auth, req: normalize(req), warnings: []string{}}
	o.logger.Printf("run=%s start auth=%s categories=%v max=%d images=%t audio=%t dry_run=%t",
		r.id, auth.Mode, r.req.Categories, r.req.MaxResults, r.req.IncludeImages, r.req.IncludeAudio, r.req.DryRun)

	res, err := o.execute(ctx, r)
	if err != nil {
		o.deps.Metrics.StageFailed(r.stage)
		o.deps.Metrics.ObserveRun(digest.StatusError, string(auth.Mode), len(r.processed), 1, time.Since(started))
		o.logger.Printf("run=%s failed stage=%s: %v", r.id, r.stage, err)
		o.record(ctx, r, digest.RunRecord{
			Warnings: []string{err.Error()},
			Papers:   []digest.PaperRef{},
			Status:   digest.StatusError,
		})
		return nil, err
	}

	o.deps.Metrics.ObserveRun(digest.StatusSuccess, string(auth.Mode), len(r.processed), len(r.warnings), time.Since(started))
	o.logger.Printf("run=%s done papers=%d warnings=%d note=%s", r.id, len(res.Papers), len(res.Warnings), res.NoteFile)
	o.record(ctx, r, digest.RunRecord{
		NoteFile: res.NoteFile,
		Warnings: res.Warnings,
		Papers:   paperRefs(r.processed),
		Status:   digest.StatusSuccess,
	})
	return res, nil
}

func (o *Orchestrator) execute(ctx context.Context, r *run) (*digest.CollectResult, error) {
	r.stage = "feed"
	papers, err := o.deps.Feed.Fetch(ctx, r.req.Categories, r.req.MaxResults)
	if err != nil {
		return nil, err
	}

	for _, paper := range papers {
		p, err := o.processPaper(ctx, r, paper)
		if err != nil {
			return nil, err
		}
		r.processed = append(r.processed, p)
	}

	r.stage = "note"
	now := o.now()
	date := digest.FormatDate(now)
	title := r.req.Title
	if title == "" {
		title = digest.DefaultTitle(now)
	}
	note := markdown.Compose(r.processed, title, date)
	noteFile := digest.NotePath(title, now)

	var commitInfo json.RawMessage
	if !r.req.DryRun {
		commitInfo, err = o.deps.Publisher.Put(ctx, noteFile, []byte(note), "Add arXiv digest "+date)
		if err != nil {
			return nil, err
		}
	}

	return &digest.CollectResult{
		AuthMode:   r.auth.Mode,
		DryRun:     r.req.DryRun,
		NoteFile:   noteFile,
		CommitInfo: commitInfo,
		Papers:     paperResults(r.processed),
		Warnings:   r.warnings,
	}, nil
}

func (o *Orchestrator) processPaper(ctx context.Context, r *run, paper digest.Paper) (digest.ProcessedPaper, error) {
	r.stage = "summary"
	summary, err := o.deps.Summaries.Summarize(ctx, paper)
	if err != nil {
		return digest.ProcessedPaper{}, err
	}
	if summary.ParseWarning {
		r.warnings = append(r.warnings, "Summary parse warning for "+paper.ArxivID)
	}
	out := digest.ProcessedPaper{Paper: paper, Summary: summary}

	if r.req.IncludeImages {
		r.stage = "image"
		repoPath, publicPath := digest.ImageFile(paper.ArxivID)
		if !r.req.DryRun {
			if _, err := o.deps.Publisher.Put(ctx, repoPath, cover.Render(paper), "Add cover image for "+paper.ArxivID); err != nil {
				return digest.ProcessedPaper{}, err
			}
		}
		out.ImagePath = &publicPath
	}

	if r.req.IncludeAudio {
		r.stage = "audio"
		path, err := o.narrate(ctx, r, paper, summary)
		if err != nil {
			o.deps.Metrics.StageFailed("audio")
			o.logger.Printf("run=%s audio failed for %s: %v", r.id, paper.ArxivID, err)
			r.warnings = append(r.warnings, fmt.Sprintf("Audio generation failed for %s: %s", paper.ArxivID, err.Error()))
		} else {
			out.AudioPath = path
		}
	}
	return out, nil
}

// narrate returns the public audio path, nil when narration is unavailable, or the
// contained error.
func (o *Orchestrator) narrate(ctx context.Context, r *run, paper digest.Paper, summary digest.Summary) (*string, error) {
	var (
		audio *digest.Audio
		err   error
	)
	if o.deps.Narrator != nil {
		audio, err = o.deps.Narrator.Synthesize(ctx, paper, summary)
		if err != nil {
			return nil, err
		}
	}
	if audio == nil {
		r.warnings = append(r.warnings, WarnTTSNotConfigured)
		return nil, nil
	}
	ext := audio.Ext
	if ext == "" {
		ext = "mp3"
	}
	repoPath, publicPath := digest.AudioFile(paper.ArxivID, ext)
	if !r.req.DryRun {
		if _, err := o.deps.Publisher.Put(ctx, repoPath, audio.Data, "Add audio summary for "+paper.ArxivID); err != nil {
			return nil, err
		}
	}
	return &publicPath, nil
}

func (o *Orchestrator) record(ctx context.Context, r *run, rec digest.RunRecord) {
	if !r.auth.Attributable() || o.deps.Runs == nil {
		return
	}
	rec.ID = r.id
	rec.UserID = r.auth.UserID
	rec.UserEmail = r.auth.Email
	rec.Categories = r.req.Categories
	rec.MaxResults = r.req.MaxResults
	rec.IncludeAudio = r.req.IncludeAudio
	rec.IncludeImages = r.req.IncludeImages
	rec.DryRun = r.req.DryRun
	o.deps.Runs.Record(ctx, rec)
}

func normalize(req digest.CollectRequest) digest.CollectRequest {
	if len(req.Categories) == 0 {
		req.Categories = digest.DefaultCategories()
	}
	if req.MaxResults <= 0 {
		req.MaxResults = digest.DefaultMaxResults
	}
	return req
}

func paperRefs(papers []digest.ProcessedPaper) []digest.PaperRef {
	out := make([]digest.PaperRef, 0, len(papers))
	for _, p := range papers {
		out = append(out, digest.PaperRef{ID: p.ID, Title: p.Title, ArxivID: p.ArxivID})
	}
	return out
}

func paperResults(papers []digest.ProcessedPaper) []digest.PaperResult {
	out := make([]digest.PaperResult, 0, len(papers))
	for _, p := range papers {
		out = append(out, digest.PaperResult{ID: p.ID, Title: p.Title, ArxivID: p.ArxivID, ImagePath: p.ImagePath, AudioPath: p.AudioPath})
	}
	return out
}
