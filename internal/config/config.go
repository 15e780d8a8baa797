package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"ideaforge/internal/llm"
	"ideaforge/internal/sources"
	"ideaforge/internal/validate"
)

// TagInterval is how often the tag extraction job runs. It is not configurable.
const TagInterval = 10 * time.Minute

type DatabaseConfig struct {
	Path string `yaml:"path" validate:"required"`
}

type ServerConfig struct {
	Addr        string   `yaml:"addr" validate:"required"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type ScheduleConfig struct {
	FetchIntervalMinutes int  `yaml:"fetch_interval_minutes" validate:"gt=0"`
	TagBatchLimit        int  `yaml:"tag_batch_limit" validate:"gt=0"`
	RunOnStart           bool `yaml:"run_on_start"`
}

// RSSConfig carries ingestion settings. Timeout is in seconds.
type RSSConfig struct {
	Timeout               int              `yaml:"timeout" validate:"gt=0"`
	MaxPostsPerFeed       int              `yaml:"max_posts_per_feed" validate:"gte=0"`
	Workers               int              `yaml:"workers" validate:"gt=0"`
	ExtractMissingSummary bool             `yaml:"extract_missing_summary"`
	Sources               []sources.Source `yaml:"sources" validate:"dive"`
}

type PromptsConfig struct {
	Tags  string `yaml:"tags"`
	Idea  string `yaml:"idea"`
	Audit string `yaml:"audit"`
}

// AIConfig points at the OpenAI-compatible gateway. Timeout is in seconds.
type AIConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model" validate:"required"`
	Timeout           int           `yaml:"timeout" validate:"gt=0"`
	RequestsPerMinute int           `yaml:"requests_per_minute" validate:"gte=0"`
	Prompts           PromptsConfig `yaml:"prompts"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
	Format string `yaml:"format" validate:"oneof=text json"`
	File   string `yaml:"file"`
}

// Config is the whole application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Schedule ScheduleConfig `yaml:"schedule"`
	RSS      RSSConfig      `yaml:"rss"`
	AI       AIConfig       `yaml:"ai"`
	Log      LogConfig      `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: FallbackDBPath()},
		Server:   ServerConfig{Addr: ":8000", CORSOrigins: []string{"*"}},
		Schedule: ScheduleConfig{FetchIntervalMinutes: 60, TagBatchLimit: 10},
		RSS: RSSConfig{
			Timeout: 30,
			Workers: 4,
			Sources: sources.Defaults(),
		},
		AI: AIConfig{
			BaseURL: llm.DefaultBaseURL,
			Model:   llm.DefaultModel,
			Timeout: int(llm.DefaultTimeout / time.Second),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// FallbackDBPath is the database location used when none is configured.
func FallbackDBPath() string {
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, "Library", "Application Support", "IdeaForge", "ideaforge.db")
		}
	}
	return "ideaforge.db"
}

// DefaultPath is ~/.config/ideaforge/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "ideaforge", "config.yaml"), nil
}

// Load reads the YAML file at path (DefaultPath when empty), loads .env, applies
// environment overrides and validates the result. A missing file yields defaults.
func Load(path string) (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	cfg := Default()
	if strings.TrimSpace(path) == "" {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}
	if path != "" {
		b, err := os.ReadFile(ExpandPath(path))
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return Config{}, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding the environment.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := firstEnv("IDEAFORGE_AI_API_KEY", "VERCEL_API_KEY"); v != "" {
		cfg.AI.APIKey = v
	}
	if v := firstEnv("IDEAFORGE_AI_BASE_URL"); v != "" {
		cfg.AI.BaseURL = v
	}
	if v := firstEnv("IDEAFORGE_AI_MODEL"); v != "" {
		cfg.AI.Model = v
	}
	if v := firstEnv("IDEAFORGE_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := firstEnv("IDEAFORGE_HTTP_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := firstEnv("IDEAFORGE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := firstEnv("IDEAFORGE_FETCH_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("IDEAFORGE_FETCH_INTERVAL: %w", err)
		}
		cfg.Schedule.FetchIntervalMinutes = n
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func (c *Config) normalize() {
	c.Database.Path = ExpandPath(strings.TrimSpace(c.Database.Path))
	c.Log.File = ExpandPath(strings.TrimSpace(c.Log.File))
	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	c.Log.Format = strings.ToLower(strings.TrimSpace(c.Log.Format))
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if len(c.RSS.Sources) == 0 {
		c.RSS.Sources = sources.Defaults()
	}
}

// Validate checks field constraints and that prompt overrides parse as templates.
func (c Config) Validate() error {
	if err := validate.New().Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := llm.NewPrompts(c.AI.PromptOverrides()); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// FetchInterval is the feed fetch job interval.
func (s ScheduleConfig) FetchInterval() time.Duration {
	return time.Duration(s.FetchIntervalMinutes) * time.Minute
}

// TimeoutDuration is the per-request feed timeout.
func (r RSSConfig) TimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}

// TimeoutDuration is the per-call gateway timeout.
func (a AIConfig) TimeoutDuration() time.Duration {
	return time.Duration(a.Timeout) * time.Second
}

// PromptOverrides converts the configured templates for llm.NewPrompts.
func (a AIConfig) PromptOverrides() llm.PromptOverrides {
	return llm.PromptOverrides{Tags: a.Prompts.Tags, Idea: a.Prompts.Idea, Audit: a.Prompts.Audit}
}

// ExpandPath expands leading ~ and environment variables in a filesystem path.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	p = os.ExpandEnv(p)
	if strings.HasPrefix(p, "~") {
		if home, err := os.UserHomeDir(); err == nil {
			if p == "~" {
				p = home
			} else if strings.HasPrefix(p, "~/") {
				p = filepath.Join(home, p[2:])
			}
		}
	}
	return p
}
