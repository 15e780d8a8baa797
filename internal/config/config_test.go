package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/sources"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"IDEAFORGE_AI_API_KEY", "VERCEL_API_KEY", "IDEAFORGE_AI_BASE_URL", "IDEAFORGE_AI_MODEL",
		"IDEAFORGE_DATABASE_PATH", "IDEAFORGE_FETCH_INTERVAL", "IDEAFORGE_HTTP_ADDR", "IDEAFORGE_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 60, cfg.Schedule.FetchIntervalMinutes)
	assert.Equal(t, time.Hour, cfg.Schedule.FetchInterval())
	assert.Equal(t, 10, cfg.Schedule.TagBatchLimit)
	assert.Equal(t, "https://ai-gateway.vercel.sh/v1", cfg.AI.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.AI.TimeoutDuration())
	assert.Len(t, cfg.RSS.Sources, 10)
	assert.Equal(t, ":8000", cfg.Server.Addr)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
database:
  path: "/tmp/ideas.db"
schedule:
  fetch_interval_minutes: 15
rss:
  sources:
    - name: Local
      url: http://127.0.0.1:9000/rss
ai:
  model: "openai/gpt-4.1-mini"
  prompts:
    tags: "標籤 {{.Title}}"
log:
  format: JSON
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/ideas.db", cfg.Database.Path)
	assert.Equal(t, 15*time.Minute, cfg.Schedule.FetchInterval())
	assert.Equal(t, 10, cfg.Schedule.TagBatchLimit)
	assert.Equal(t, []sources.Source{{Name: "Local", URL: "http://127.0.0.1:9000/rss"}}, cfg.RSS.Sources)
	assert.Equal(t, "openai/gpt-4.1-mini", cfg.AI.Model)
	assert.Equal(t, "標籤 {{.Title}}", cfg.AI.PromptOverrides().Tags)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("VERCEL_API_KEY", "vercel-key")
	t.Setenv("IDEAFORGE_FETCH_INTERVAL", "5")
	t.Setenv("IDEAFORGE_HTTP_ADDR", "127.0.0.1:9999")
	t.Setenv("IDEAFORGE_DATABASE_PATH", "$HOME/x.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "vercel-key", cfg.AI.APIKey)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.FetchInterval())
	assert.Equal(t, "127.0.0.1:9999", cfg.Server.Addr)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), "x.db"), cfg.Database.Path)

	t.Setenv("IDEAFORGE_AI_API_KEY", "primary")
	cfg, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "primary", cfg.AI.APIKey)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	cases := map[string]string{
		"interval":   "schedule:\n  fetch_interval_minutes: 0\n",
		"base url":   "ai:\n  base_url: \"not a url\"\n",
		"source url": "rss:\n  sources:\n    - name: x\n      url: \"\"\n",
		"log level":  "log:\n  level: loud\n",
		"prompt":     "ai:\n  prompts:\n    idea: \"{{.TitleA\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, body))
			assert.ErrorContains(t, err, "invalid config")
		})
	}

	t.Run("bad env interval", func(t *testing.T) {
		t.Setenv("IDEAFORGE_FETCH_INTERVAL", "soon")
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "IDEAFORGE_FETCH_INTERVAL")
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, home, ExpandPath("~"))
	assert.Equal(t, filepath.Join(home, "a", "b.db"), ExpandPath("~/a/b.db"))
	assert.Equal(t, "", ExpandPath(""))
}

func TestWriteConfigRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "cfg", "config.yaml")
	cfg := Default()
	cfg.Database.Path = "/tmp/roundtrip.db"
	cfg.AI.Prompts.Audit = "審計：\n{{.Content}}"

	require.NoError(t, WriteConfig(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Database.Path, loaded.Database.Path)
	assert.Equal(t, cfg.RSS.Sources, loaded.RSS.Sources)
	assert.Equal(t, "審計：\n{{.Content}}\n", loaded.AI.Prompts.Audit)

	// second write backs up the first
	require.NoError(t, WriteConfig(path, cfg))
	matches, err := filepath.Glob(path + ".bak-*")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}
