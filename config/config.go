package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the digest service
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Feed      FeedConfig      `mapstructure:"feed"`
	LLM       LLMConfig       `mapstructure:"llm"`
	TTS       TTSConfig       `mapstructure:"tts"`
	GitHub    GitHubConfig    `mapstructure:"github"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// AgentConfig holds the operator-held static token used by automation.
// TokenHash is a bcrypt hash and takes effect when Token is empty.
type AgentConfig struct {
	Token     string `mapstructure:"token"`
	TokenHash string `mapstructure:"token_hash"`
}

// FeedConfig configures the arXiv export API.
type FeedConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// LLMConfig configures the OpenAI-compatible chat completion backend
type LLMConfig struct {
	APIKey      string        `mapstructure:"api_key"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	Temperature float64       `mapstructure:"temperature"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// TTSConfig configures the optional narration backend.
type TTSConfig struct {
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Voice   string        `mapstructure:"voice"`
	Format  string        `mapstructure:"format"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Configured reports whether narration can be attempted.
func (t TTSConfig) Configured() bool {
	return strings.TrimSpace(t.URL) != "" && strings.TrimSpace(t.APIKey) != ""
}

// GitHubConfig configures the content repository the digest is published to
type GitHubConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	Owner     string        `mapstructure:"owner"`
	Repo      string        `mapstructure:"repo"`
	Token     string        `mapstructure:"token"`
	Branch    string        `mapstructure:"branch"`
	UserAgent string        `mapstructure:"user_agent"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Configured reports whether owner, repository and credential are all present.
func (g GitHubConfig) Configured() bool {
	return strings.TrimSpace(g.Owner) != "" && strings.TrimSpace(g.Repo) != "" && strings.TrimSpace(g.Token) != ""
}

// SupabaseConfig configures session auth and run logging. Both are disabled when
// URL or service role key is missing.
type SupabaseConfig struct {
	URL            string        `mapstructure:"url"`
	ServiceRoleKey string        `mapstructure:"service_role_key"`
	AnonKey        string        `mapstructure:"anon_key"`
	JWTSecret      string        `mapstructure:"jwt_secret"`
	RunsTable      string        `mapstructure:"runs_table"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// Configured reports whether the Supabase backend can be reached.
func (s SupabaseConfig) Configured() bool {
	return strings.TrimSpace(s.URL) != "" && strings.TrimSpace(s.ServiceRoleKey) != ""
}

// StorageConfig contains optional direct storage backends
type StorageConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string `mapstructure:"url"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// Configured reports whether a DSN can be built.
func (p PostgresConfig) Configured() bool {
	return strings.TrimSpace(p.URL) != "" || (strings.TrimSpace(p.Host) != "" && strings.TrimSpace(p.DBName) != "")
}

// DSN returns URL when set, otherwise a DSN assembled from the individual fields.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Configured reports whether a Redis address is available.
func (r RedisConfig) Configured() bool { return strings.TrimSpace(r.Host) != "" }

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("%s:%s", r.Host, port)
}

// SchedulerConfig describes the scheduled digest run. An empty Cron disables it.
type SchedulerConfig struct {
	Cron          string        `mapstructure:"cron"`
	Categories    []string      `mapstructure:"categories"`
	MaxResults    int           `mapstructure:"max_results"`
	IncludeImages bool          `mapstructure:"include_images"`
	IncludeAudio  bool          `mapstructure:"include_audio"`
	DryRun        bool          `mapstructure:"dry_run"`
	Title         string        `mapstructure:"title"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
}

// Enabled reports whether scheduled runs are configured.
func (s SchedulerConfig) Enabled() bool { return strings.TrimSpace(s.Cron) != "" }

func (s SchedulerConfig) Validate() error {
	if s.Enabled() && s.MaxResults < 0 {
		return fmt.Errorf("scheduler.max_results cannot be negative")
	}
	return nil
}

// TelemetryConfig contains metrics settings
type TelemetryConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// envBindings maps config keys onto the deployment's environment variable names.
var envBindings = map[string][]string{
	"server.address":            {"DIGEST_HTTP_ADDR", "PORT"},
	"agent.token":               {"AGENT_TOKEN"},
	"agent.token_hash":          {"AGENT_TOKEN_HASH"},
	"feed.endpoint":             {"ARXIV_API_URL"},
	"llm.api_key":               {"ARK_API_KEY"},
	"llm.base_url":              {"OPENCODE_BASE_URL"},
	"llm.model":                 {"OPENCODE_MODEL"},
	"tts.url":                   {"TTS_API_URL"},
	"tts.api_key":               {"TTS_API_KEY"},
	"tts.voice":                 {"TTS_VOICE"},
	"github.owner":              {"GITHUB_OWNER"},
	"github.repo":               {"GITHUB_REPO"},
	"github.token":              {"GITHUB_TOKEN"},
	"github.branch":             {"GITHUB_BRANCH"},
	"supabase.url":              {"SUPABASE_URL"},
	"supabase.service_role_key": {"SUPABASE_SERVICE_ROLE_KEY"},
	"supabase.anon_key":         {"SUPABASE_ANON_KEY"},
	"supabase.jwt_secret":       {"SUPABASE_JWT_SECRET"},
	"storage.postgres.url":      {"DATABASE_URL"},
	"storage.redis.host":        {"REDIS_HOST"},
	"storage.redis.port":        {"REDIS_PORT"},
	"storage.redis.password":    {"REDIS_PASSWORD"},
	"scheduler.cron":            {"DIGEST_SCHEDULE_CRON"},
	"telemetry.enabled":         {"DIGEST_METRICS_ENABLED"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", ":10001")
	v.SetDefault("feed.endpoint", "https://export.arxiv.org/api/query")
	v.SetDefault("llm.base_url", "https://ark.cn-beijing.volces.com/api/coding/v3")
	v.SetDefault("llm.model", "ark-code-latest")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("tts.voice", "neutral")
	v.SetDefault("tts.format", "mp3")
	v.SetDefault("github.api_url", "https://api.github.com")
	v.SetDefault("github.branch", "main")
	v.SetDefault("github.user_agent", "lumen-garden-agent")
	v.SetDefault("supabase.runs_table", "agent_runs")
	v.SetDefault("scheduler.max_results", 5)
	v.SetDefault("scheduler.poll_interval", time.Minute)
	v.SetDefault("scheduler.lock_ttl", 10*time.Minute)
	v.SetDefault("telemetry.enabled", true)
}

// LoadConfig builds the configuration from defaults, an optional JSON config file and the
// environment. path selects an explicit file; when empty the usual locations are searched
// and a missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	setDefaults(v)

	if path == "" {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			v.AddConfigPath(filepath.Dir(exe))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("DIGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize trims values and fills defaults that viper cannot express.
func (c *Config) Normalize() {
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.GitHub.APIURL = strings.TrimRight(strings.TrimSpace(c.GitHub.APIURL), "/")
	c.Supabase.URL = strings.TrimRight(strings.TrimSpace(c.Supabase.URL), "/")
	if c.GitHub.Branch == "" {
		c.GitHub.Branch = "main"
	}
	if c.TTS.Format == "" {
		c.TTS.Format = "mp3"
	}
	if c.Supabase.RunsTable == "" {
		c.Supabase.RunsTable = "agent_runs"
	}
	if c.Server.Address != "" && !strings.Contains(c.Server.Address, ":") {
		c.Server.Address = ":" + c.Server.Address
	}
	var cats []string
	for _, cat := range c.Scheduler.Categories {
		if cat = strings.TrimSpace(cat); cat != "" {
			cats = append(cats, cat)
		}
	}
	c.Scheduler.Categories = cats
	if c.Scheduler.PollInterval <= 0 {
		c.Scheduler.PollInterval = time.Minute
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be within [0, 2]")
	}
	if err := c.Scheduler.Validate(); err != nil {
		return err
	}
	return nil
}
