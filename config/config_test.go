package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	chdir(t, t.TempDir())
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Feed.Endpoint != "https://export.arxiv.org/api/query" {
		t.Fatalf("unexpected feed endpoint %q", cfg.Feed.Endpoint)
	}
	if cfg.LLM.Model != "ark-code-latest" || cfg.LLM.Temperature != 0.2 {
		t.Fatalf("unexpected llm defaults %+v", cfg.LLM)
	}
	if cfg.GitHub.Branch != "main" || cfg.TTS.Voice != "neutral" {
		t.Fatalf("unexpected defaults github=%+v tts=%+v", cfg.GitHub, cfg.TTS)
	}
	if cfg.TTS.Configured() || cfg.Supabase.Configured() || cfg.GitHub.Configured() {
		t.Fatalf("optional backends should be unconfigured by default")
	}
	if cfg.Scheduler.Enabled() {
		t.Fatalf("scheduler should be disabled by default")
	}
}

func TestLoadConfigReadsDeploymentEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ARK_API_KEY", "ark-key")
	t.Setenv("OPENCODE_BASE_URL", "https://llm.example.com/v1/")
	t.Setenv("GITHUB_OWNER", "octo")
	t.Setenv("GITHUB_REPO", "garden")
	t.Setenv("GITHUB_TOKEN", "ghp_x")
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("AGENT_TOKEN", "secret")
	t.Setenv("TTS_API_URL", "https://tts.example.com")
	t.Setenv("TTS_API_KEY", "tts")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LLM.APIKey != "ark-key" || cfg.LLM.BaseURL != "https://llm.example.com/v1" {
		t.Fatalf("unexpected llm config %+v", cfg.LLM)
	}
	if !cfg.GitHub.Configured() || !cfg.Supabase.Configured() || !cfg.TTS.Configured() {
		t.Fatalf("expected backends configured: %+v", cfg)
	}
	if cfg.Agent.Token != "secret" {
		t.Fatalf("unexpected agent token %q", cfg.Agent.Token)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "digest.json")
	body := `{"scheduler":{"cron":"0 7 * * *","categories":[" cs.AI ","","cs.LG"],"max_results":3,"include_images":true},"server":{"address":"8088"}}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if !cfg.Scheduler.Enabled() || cfg.Scheduler.MaxResults != 3 || !cfg.Scheduler.IncludeImages {
		t.Fatalf("unexpected scheduler %+v", cfg.Scheduler)
	}
	if len(cfg.Scheduler.Categories) != 2 || cfg.Scheduler.Categories[0] != "cs.AI" {
		t.Fatalf("categories not normalized: %v", cfg.Scheduler.Categories)
	}
	if cfg.Scheduler.PollInterval != time.Minute {
		t.Fatalf("unexpected poll interval %v", cfg.Scheduler.PollInterval)
	}
	if cfg.Server.Address != ":8088" {
		t.Fatalf("unexpected address %q", cfg.Server.Address)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{Host: "db", User: "u", Password: "p", DBName: "digest"}
	if !p.Configured() {
		t.Fatalf("expected configured")
	}
	if got := p.DSN(); got != "postgres://u:p@db:5432/digest?sslmode=disable" {
		t.Fatalf("unexpected dsn %q", got)
	}
	p.URL = "postgres://direct"
	if p.DSN() != "postgres://direct" {
		t.Fatalf("url should win")
	}
}

// chdir changes the working directory for the duration of the test,
// equivalent to testing.T.Chdir (Go 1.24+).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatalf("restore Chdir: %v", err)
		}
	})
}
