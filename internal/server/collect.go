package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/arxiv-digest/internal/digest"
)

// Authenticator resolves the caller of a request from its Authorization header.
type Authenticator interface {
	Resolve(ctx context.Context, header string) (digest.AuthContext, error)
}

// Collector runs the digest pipeline.
type Collector interface {
	Run(ctx context.Context, auth digest.AuthContext, req digest.CollectRequest) (*digest.CollectResult, error)
}

// CollectHandler serves POST /collect.
type CollectHandler struct {
	Auth     Authenticator
	Pipeline Collector
}

type collectResponse struct {
	OK bool `json:"ok"`
	*digest.CollectResult
}

func NewCollectHandler(auth Authenticator, pipeline Collector) *CollectHandler {
	return &CollectHandler{Auth: auth, Pipeline: pipeline}
}

func (h *CollectHandler) Register(e *echo.Echo) {
	e.Any("/collect", h.collect)
}

func (h *CollectHandler) collect(c echo.Context) error {
	if c.Request().Method != http.MethodPost {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed")
	}
	// client disconnects do not abort in-flight backend calls
	ctx := context.WithoutCancel(c.Request().Context())

	id, err := h.Auth.Resolve(ctx, c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized").SetInternal(err)
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		body = nil
	}
	req := ParseCollectRequest(body)

	res, err := h.Pipeline.Run(ctx, id, req)
	if err != nil {
		if errors.Is(err, digest.ErrUnauthorized) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Unauthorized").SetInternal(err)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error()).SetInternal(err)
	}
	return c.JSON(http.StatusOK, collectResponse{OK: true, CollectResult: res})
}

// ParseCollectRequest turns a loosely typed JSON body into a request. Malformed bodies and
// fields fall back to defaults rather than failing.
func ParseCollectRequest(body []byte) digest.CollectRequest {
	req := digest.CollectRequest{
		Categories: digest.DefaultCategories(),
		MaxResults: digest.DefaultMaxResults,
	}
	var raw map[string]any
	if len(body) == 0 || json.Unmarshal(body, &raw) != nil || raw == nil {
		return req
	}

	if list, ok := raw["categories"].([]any); ok {
		var cats []string
		for _, item := range list {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				cats = append(cats, strings.TrimSpace(s))
			}
		}
		if len(cats) > 0 {
			req.Categories = cats
		}
	}
	if n, ok := positiveInt(raw["maxResults"]); ok {
		req.MaxResults = n
	}
	req.IncludeAudio = boolish(raw["includeAudio"])
	req.IncludeImages = boolish(raw["includeImages"])
	req.DryRun = boolish(raw["dryRun"])
	if title, ok := raw["title"].(string); ok {
		req.Title = strings.TrimSpace(title)
	}
	return req
}

// boolish accepts a JSON boolean or the string "true" in any case.
func boolish(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(strings.TrimSpace(b), "true")
	default:
		return false
	}
}

func positiveInt(v any) (int, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
