package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/arxiv-digest/config"
)

// PublicConfigHandler serves GET /config: the values a browser client needs to start a
// Supabase session.
type PublicConfigHandler struct {
	SupabaseURL     string
	SupabaseAnonKey string
}

type publicConfigResponse struct {
	OK              bool   `json:"ok"`
	SupabaseURL     string `json:"supabaseUrl"`
	SupabaseAnonKey string `json:"supabaseAnonKey"`
}

func NewPublicConfigHandler(cfg config.SupabaseConfig) *PublicConfigHandler {
	return &PublicConfigHandler{SupabaseURL: cfg.URL, SupabaseAnonKey: cfg.AnonKey}
}

func (h *PublicConfigHandler) Register(e *echo.Echo) {
	e.Any("/config", h.get)
}

func (h *PublicConfigHandler) get(c echo.Context) error {
	if c.Request().Method != http.MethodGet {
		return echo.NewHTTPError(http.StatusMethodNotAllowed, "Method not allowed")
	}
	return c.JSON(http.StatusOK, publicConfigResponse{OK: true, SupabaseURL: h.SupabaseURL, SupabaseAnonKey: h.SupabaseAnonKey})
}
