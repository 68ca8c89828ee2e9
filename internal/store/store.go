package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

type Store struct {
	DB *sql.DB
}

// Run is a stored agent_runs row.
type Run struct {
	digest.RunRecord
	CreatedAt time.Time
}

func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// InsertRun stores rec. An empty or malformed rec.ID is replaced with a fresh uuid.
func (s *Store) InsertRun(ctx context.Context, rec digest.RunRecord) error {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		id = uuid.New()
	}
	papers := rec.Papers
	if papers == nil {
		papers = []digest.PaperRef{}
	}
	papersJSON, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("encode papers: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `
INSERT INTO agent_runs (id, user_id, user_email, categories, max_results, include_audio, include_images, dry_run, note_file, warnings, papers, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		id.String(), rec.UserID, rec.UserEmail, pq.Array(nonNil(rec.Categories)), rec.MaxResults,
		rec.IncludeAudio, rec.IncludeImages, rec.DryRun, rec.NoteFile, pq.Array(nonNil(rec.Warnings)),
		papersJSON, rec.Status)
	return err
}

// ListRuns returns the most recent runs of a user, newest first.
func (s *Store) ListRuns(ctx context.Context, userID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, user_id, user_email, categories, max_results, include_audio, include_images, dry_run, note_file, warnings, papers, status, created_at
FROM agent_runs
WHERE user_id=$1
ORDER BY created_at DESC
LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			categories pq.StringArray
			warnings   pq.StringArray
			papers     []byte
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.UserEmail, &categories, &r.MaxResults, &r.IncludeAudio,
			&r.IncludeImages, &r.DryRun, &r.NoteFile, &warnings, &papers, &r.Status, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Categories = []string(categories)
		r.Warnings = []string(warnings)
		if len(papers) > 0 {
			if err := json.Unmarshal(papers, &r.Papers); err != nil {
				return nil, fmt.Errorf("decode papers for run %s: %w", r.ID, err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
