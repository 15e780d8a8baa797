package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// WriteConfig renders cfg as a commented YAML file at path. An existing file is
// backed up first.
func WriteConfig(path string, cfg Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		if err := BackupFile(path); err != nil {
			return fmt.Errorf("failed to back up existing config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(Render(cfg)), 0o644)
}

// Render produces the YAML text WriteConfig writes. The API key is never written;
// set IDEAFORGE_AI_API_KEY or VERCEL_API_KEY instead.
func Render(cfg Config) string {
	var sb strings.Builder
	sb.WriteString("# IdeaForge configuration\n")

	sb.WriteString("database:\n")
	sb.WriteString(fmt.Sprintf("  path: %q\n", cfg.Database.Path))

	sb.WriteString("server:\n")
	sb.WriteString(fmt.Sprintf("  addr: %q\n", cfg.Server.Addr))
	if len(cfg.Server.CORSOrigins) > 0 {
		sb.WriteString("  cors_origins:\n")
		for _, o := range cfg.Server.CORSOrigins {
			sb.WriteString(fmt.Sprintf("    - %q\n", o))
		}
	}

	sb.WriteString("schedule:\n")
	sb.WriteString(fmt.Sprintf("  fetch_interval_minutes: %d\n", cfg.Schedule.FetchIntervalMinutes))
	sb.WriteString(fmt.Sprintf("  tag_batch_limit: %d  # tag extraction runs every %s\n", cfg.Schedule.TagBatchLimit, TagInterval))
	sb.WriteString(fmt.Sprintf("  run_on_start: %t\n", cfg.Schedule.RunOnStart))

	sb.WriteString("rss:\n")
	sb.WriteString(fmt.Sprintf("  timeout: %d\n", cfg.RSS.Timeout))
	sb.WriteString(fmt.Sprintf("  max_posts_per_feed: %d  # 0 = no cap\n", cfg.RSS.MaxPostsPerFeed))
	sb.WriteString(fmt.Sprintf("  workers: %d\n", cfg.RSS.Workers))
	sb.WriteString(fmt.Sprintf("  extract_missing_summary: %t\n", cfg.RSS.ExtractMissingSummary))
	sb.WriteString("  sources:\n")
	for _, s := range cfg.RSS.Sources {
		sb.WriteString(fmt.Sprintf("    - name: %q\n", s.Name))
		sb.WriteString(fmt.Sprintf("      url: %q\n", s.URL))
		if s.Category != "" {
			sb.WriteString(fmt.Sprintf("      category: %q\n", s.Category))
		}
	}

	sb.WriteString("ai:\n")
	sb.WriteString(fmt.Sprintf("  base_url: %q\n", cfg.AI.BaseURL))
	sb.WriteString(fmt.Sprintf("  model: %q\n", cfg.AI.Model))
	sb.WriteString(fmt.Sprintf("  timeout: %d\n", cfg.AI.Timeout))
	sb.WriteString(fmt.Sprintf("  requests_per_minute: %d  # 0 = unlimited\n", cfg.AI.RequestsPerMinute))
	writePrompt(&sb, "tags", cfg.AI.Prompts.Tags)
	writePrompt(&sb, "idea", cfg.AI.Prompts.Idea)
	writePrompt(&sb, "audit", cfg.AI.Prompts.Audit)

	sb.WriteString("log:\n")
	sb.WriteString(fmt.Sprintf("  level: %q\n", cfg.Log.Level))
	sb.WriteString(fmt.Sprintf("  format: %q\n", cfg.Log.Format))
	if cfg.Log.File != "" {
		sb.WriteString(fmt.Sprintf("  file: %q\n", cfg.Log.File))
	}
	return sb.String()
}

func writePrompt(sb *strings.Builder, key, prompt string) {
	if strings.TrimSpace(prompt) == "" {
		return
	}
	if !strings.Contains(sb.String(), "  prompts:\n") {
		sb.WriteString("  prompts:\n")
	}
	sb.WriteString(fmt.Sprintf("    %s: |\n", key))
	for _, line := range strings.Split(prompt, "\n") {
		sb.WriteString("      " + line + "\n")
	}
}

// BackupFile creates a backup of the specified file with a timestamp
func BackupFile(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	ts := time.Now().Format("20060102-150405")
	bak := path + ".bak-" + ts
	return os.WriteFile(bak, b, 0o644)
}
