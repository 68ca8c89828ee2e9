package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/mohammad-safakhou/arxiv-digest/config"
)

type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// ErrorHandler renders every error as {ok:false,error} and logs it.
func ErrorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		logger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, errorResponse{OK: false, Error: msg})
		}
	}
}

// NewRouter builds the HTTP surface on top of app.
func NewRouter(app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.HTTPErrorHandler = ErrorHandler(log.New(log.Writer(), "[HTTP] ", log.LstdFlags))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if h := app.MetricsHandler(); h != nil {
		e.GET("/metrics", echo.WrapHandler(h))
	}

	NewCollectHandler(app.Gate, app.Pipeline).Register(e)
	NewPublicConfigHandler(app.Config.Supabase).Register(e)
	if app.Store != nil {
		(&RunsHandler{Auth: app.Gate, Store: app.Store}).Register(e)
	}
	return e
}

// Run serves the digest API until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config) error {
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)

	if cfg.Storage.Postgres.Configured() {
		if err := Migrate("", cfg.Storage.Postgres.DSN(), "up", 0); err != nil {
			logger.Printf("migrations not applied: %v", err)
		}
	}

	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	if cfg.Scheduler.Enabled() {
		var lock Locker
		if app.Redis != nil {
			lock = NewRedisLocker(app.Redis)
		}
		sched, err := NewScheduler(cfg.Scheduler, app.Pipeline, lock)
		if err != nil {
			return err
		}
		sched.Start(ctx)
		defer sched.Stop()
	}

	e := NewRouter(app)
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.Address)
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
