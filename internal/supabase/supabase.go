// Package supabase talks to the GoTrue and PostgREST endpoints of a Supabase project.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

var errNoUser = errors.New("no supabase user for token")

// Client resolves session tokens and records digest runs.
type Client struct {
	baseURL    string
	serviceKey string
	jwtSecret  []byte
	runsTable  string
	httpClient *http.Client
}

// NewClient returns nil when the project URL or service role key is missing.
func NewClient(cfg config.SupabaseConfig) *Client {
	if !cfg.Configured() {
		return nil
	}
	table := cfg.RunsTable
	if table == "" {
		table = "agent_runs"
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		serviceKey: cfg.ServiceRoleKey,
		runsTable:  table,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
	if cfg.JWTSecret != "" {
		c.jwtSecret = []byte(cfg.JWTSecret)
	}
	return c
}

type user struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// ResolveUser maps a session token to a Supabase identity. With a JWT secret configured the
// token is verified locally; otherwise GoTrue is asked. Any failure is returned as an error
// wrapping digest.ErrUnauthorized.
func (c *Client) ResolveUser(ctx context.Context, token string) (digest.AuthContext, error) {
	if c == nil || token == "" {
		return digest.AuthContext{}, digest.Errorf(digest.ErrUnauthorized, "%v", errNoUser)
	}
	var (
		u   user
		err error
	)
	if c.jwtSecret != nil {
		u, err = c.verifyLocal(token)
	} else {
		u, err = c.fetchUser(ctx, token)
	}
	if err != nil {
		return digest.AuthContext{}, digest.Errorf(digest.ErrUnauthorized, "%v", err)
	}
	if u.ID == "" {
		return digest.AuthContext{}, digest.Errorf(digest.ErrUnauthorized, "%v", errNoUser)
	}
	return digest.AuthContext{Mode: digest.AuthModeSupabase, UserID: u.ID, Email: u.Email}, nil
}

func (c *Client) verifyLocal(token string) (user, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.jwtSecret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return user{}, fmt.Errorf("invalid session token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return user{}, errNoUser
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	return user{ID: sub, Email: email}, nil
}

func (c *Client) fetchUser(ctx context.Context, token string) (user, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return user{}, err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return user{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return user{}, fmt.Errorf("user lookup failed: %d", resp.StatusCode)
	}
	var u user
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return user{}, fmt.Errorf("decode user: %w", err)
	}
	return u, nil
}

type runRow struct {
	UserID        string            `json:"user_id"`
	UserEmail     string            `json:"user_email"`
	Categories    []string          `json:"categories"`
	MaxResults    int               `json:"max_results"`
	IncludeAudio  bool              `json:"include_audio"`
	IncludeImages bool              `json:"include_images"`
	DryRun        bool              `json:"dry_run"`
	NoteFile      string            `json:"note_file"`
	Warnings      []string          `json:"warnings"`
	Papers        []digest.PaperRef `json:"papers"`
	Status        string            `json:"status"`
}

// InsertRun appends rec to the runs table through PostgREST.
func (c *Client) InsertRun(ctx context.Context, rec digest.RunRecord) error {
	if c == nil {
		return nil
	}
	row := runRow{
		UserID:        rec.UserID,
		UserEmail:     rec.UserEmail,
		Categories:    nonNil(rec.Categories),
		MaxResults:    rec.MaxResults,
		IncludeAudio:  rec.IncludeAudio,
		IncludeImages: rec.IncludeImages,
		DryRun:        rec.DryRun,
		NoteFile:      rec.NoteFile,
		Warnings:      nonNil(rec.Warnings),
		Papers:        rec.Papers,
		Status:        rec.Status,
	}
	if row.Papers == nil {
		row.Papers = []digest.PaperRef{}
	}
	body, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("encode run: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rest/v1/"+c.runsTable, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Prefer", "return=minimal")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("insert run: %d %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
