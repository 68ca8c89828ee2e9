package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/arxiv-digest/config"
	"github.com/mohammad-safakhou/arxiv-digest/internal/arxiv"
	"github.com/mohammad-safakhou/arxiv-digest/internal/auth"
	"github.com/mohammad-safakhou/arxiv-digest/internal/github"
	"github.com/mohammad-safakhou/arxiv-digest/internal/pipeline"
	"github.com/mohammad-safakhou/arxiv-digest/internal/runlog"
	"github.com/mohammad-safakhou/arxiv-digest/internal/store"
	"github.com/mohammad-safakhou/arxiv-digest/internal/supabase"
	"github.com/mohammad-safakhou/arxiv-digest/internal/telemetry"
	"github.com/mohammad-safakhou/arxiv-digest/internal/tts"
	"github.com/mohammad-safakhou/arxiv-digest/provider"
)

// App holds the process-wide components built once from configuration.
type App struct {
	Config   *config.Config
	Gate     *auth.Gate
	Pipeline *pipeline.Orchestrator
	Runs     *runlog.Logger
	Store    *store.Store
	Redis    *redis.Client
	Metrics  *telemetry.Metrics
	Registry *prometheus.Registry
}

// NewApp wires every component. Optional backends that are not configured are left nil.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	logger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	a := &App{Config: cfg}

	if cfg.Telemetry.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = telemetry.NewMetrics(a.Registry)
	}

	if cfg.Storage.Postgres.Configured() {
		st, err := store.NewWithDSN(ctx, cfg.Storage.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.Store = st
	}

	if cfg.Storage.Redis.Configured() {
		rdb := redis.NewClient(&redis.Options{
			Addr:        cfg.Storage.Redis.Addr(),
			Password:    cfg.Storage.Redis.Password,
			DB:          cfg.Storage.Redis.DB,
			DialTimeout: cfg.Storage.Redis.Timeout,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("redis connection failed (%s): %w", cfg.Storage.Redis.Addr(), err)
		}
		a.Redis = rdb
	}

	sb := supabase.NewClient(cfg.Supabase)
	switch {
	case a.Store != nil:
		a.Runs = runlog.New(a.Store, "postgres")
	case sb != nil:
		a.Runs = runlog.New(sb, "supabase")
	}

	var resolver auth.IdentityResolver
	if sb != nil {
		resolver = sb
	}
	a.Gate = auth.NewGate(cfg.Agent, resolver)

	deps := pipeline.Deps{
		Feed:      arxiv.NewClient(cfg.Feed.Endpoint, cfg.Feed.Timeout),
		Summaries: provider.NewSummarizer(cfg.LLM),
		Publisher: github.NewClient(cfg.GitHub),
		Metrics:   a.Metrics,
	}
	if cfg.TTS.Configured() {
		deps.Narrator = tts.NewClient(cfg.TTS.URL, cfg.TTS.APIKey, cfg.TTS.Voice, cfg.TTS.Format, cfg.TTS.Timeout)
	}
	if a.Runs != nil {
		deps.Runs = a.Runs
	}
	a.Pipeline = pipeline.New(deps)

	logger.Printf("components ready: runs=%s redis=%t tts=%t github=%t metrics=%t",
		a.Runs.Backend(), a.Redis != nil, cfg.TTS.Configured(), cfg.GitHub.Configured(), a.Metrics != nil)
	return a, nil
}

// MetricsHandler serves the app registry, or nil when telemetry is disabled.
func (a *App) MetricsHandler() http.Handler {
	if a.Registry == nil {
		return nil
	}
	return promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
}

func (a *App) Close() error {
	var firstErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			firstErr = err
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
