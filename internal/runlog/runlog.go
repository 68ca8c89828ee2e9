// Package runlog records digest run outcomes to whichever backend is configured.
package runlog

import (
	"context"
	"log"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

// Sink persists a run record. *store.Store and *supabase.Client both satisfy it.
type Sink interface {
	InsertRun(ctx context.Context, rec digest.RunRecord) error
}

// Logger writes run records on a best-effort basis. The zero value and a nil *Logger
// drop records.
type Logger struct {
	sink   Sink
	name   string
	logger *log.Logger
}

// New wraps sink. name identifies the backend in log lines.
func New(sink Sink, name string) *Logger {
	return &Logger{
		sink:   sink,
		name:   name,
		logger: log.New(log.Writer(), "[RUNLOG] ", log.LstdFlags),
	}
}

// SetLogger overrides the diagnostics logger.
func (l *Logger) SetLogger(lg *log.Logger) {
	if l != nil && lg != nil {
		l.logger = lg
	}
}

// Enabled reports whether records go anywhere.
func (l *Logger) Enabled() bool { return l != nil && l.sink != nil }

// Backend names the configured sink, or "none".
func (l *Logger) Backend() string {
	if !l.Enabled() {
		return "none"
	}
	return l.name
}

// Record stores rec. Sink failures are logged and never returned.
func (l *Logger) Record(ctx context.Context, rec digest.RunRecord) {
	if !l.Enabled() {
		return
	}
	if err := l.sink.InsertRun(ctx, rec); err != nil {
		l.logger.Printf("run=%s backend=%s status=%s insert failed: %v", rec.ID, l.name, rec.Status, err)
	}
}
