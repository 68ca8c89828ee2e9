package server

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
	"github.com/mohammad-safakhou/arxiv-digest/internal/store"
)

type runLister interface {
	ListRuns(ctx context.Context, userID string, limit int) ([]store.Run, error)
}

// RunsHandler serves GET /runs: the recorded runs of the calling user.
type RunsHandler struct {
	Auth  Authenticator
	Store runLister
}

type runResponse struct {
	ID            string            `json:"id"`
	Categories    []string          `json:"categories"`
	MaxResults    int               `json:"maxResults"`
	IncludeAudio  bool              `json:"includeAudio"`
	IncludeImages bool              `json:"includeImages"`
	DryRun        bool              `json:"dryRun"`
	NoteFile      string            `json:"noteFile"`
	Warnings      []string          `json:"warnings"`
	Papers        []digest.PaperRef `json:"papers"`
	Status        string            `json:"status"`
	CreatedAt     string            `json:"createdAt"`
}

func (h *RunsHandler) Register(e *echo.Echo) {
	e.GET("/runs", h.list)
}

func (h *RunsHandler) list(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := h.Auth.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized").SetInternal(err)
	}
	if !id.Attributable() {
		return echo.NewHTTPError(http.StatusForbidden, "Runs are only recorded for user sessions")
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	runs, err := h.Store.ListRuns(ctx, id.UserID, limit)
	if err != nil {
		return err
	}
	out := make([]runResponse, 0, len(runs))
	for _, r := range runs {
		out = append(out, runResponse{
			ID:            r.ID,
			Categories:    r.Categories,
			MaxResults:    r.MaxResults,
			IncludeAudio:  r.IncludeAudio,
			IncludeImages: r.IncludeImages,
			DryRun:        r.DryRun,
			NoteFile:      r.NoteFile,
			Warnings:      r.Warnings,
			Papers:        r.Papers,
			Status:        r.Status,
			CreatedAt:     r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true, "runs": out})
}
