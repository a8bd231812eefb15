package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(llmAPIKeyEnv, "")
	t.Setenv(legacyAPIKeyEnv, "")
	t.Setenv(llmProviderEnv, "")

	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 3, cfg.Pipeline.ItemsPerSource)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, 5, cfg.Pipeline.MaxPicks)
	assert.Len(t, cfg.Feeds, 6)
	for _, group := range cfg.Feeds {
		assert.Len(t, group.Feeds, 3, group.Category)
	}
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
llm:
  provider: gemini
  model: gemini-2.5-flash
pipeline:
  fetchTimeout: 2s
  concurrency: 1
scheduler:
  timezone: Europe/Berlin
feeds:
  - category: AI
    feeds:
      - source: Local
        rss_url: http://localhost/feed.xml
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv(llmAPIKeyEnv, "secret")
	t.Setenv(databaseDSNEnv, "other.db")
	t.Setenv(llmProviderEnv, "")
	t.Setenv(llmModelEnv, "")

	cfg := Load(path)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.Endpoint, "openai endpoint must not leak into another provider")
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "other.db", cfg.Database.DSN)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.FetchTimeout)
	assert.Equal(t, 1, cfg.Pipeline.Concurrency)
	assert.Equal(t, 3, cfg.Pipeline.ItemsPerSource)
	assert.Equal(t, "Europe/Berlin", cfg.Scheduler.Location().String())
	require.Len(t, cfg.Feeds, 1)
	assert.Equal(t, "Local", cfg.Feeds[0].Feeds[0].Source)
}

func TestProviderFromEnvDropsOpenAIDefaults(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(llmModelEnv, "")
	t.Setenv(llmProviderEnv, "gemini")

	cfg := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Endpoint)
	assert.Empty(t, cfg.LLM.Model)
}

func TestProviderFromEnvKeepsExplicitModel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
llm:
  provider: gemini
  endpoint: https://gemini.internal/v1beta
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv(llmProviderEnv, "anthropic")
	t.Setenv(llmModelEnv, "claude-3-5-haiku-latest")

	cfg := Load(path)

	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Empty(t, cfg.LLM.Endpoint, "gemini endpoint must not reach the anthropic client")
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.LLM.Model)
}

func TestProviderBackToOpenAIRestoresDefaults(t *testing.T) {
	cfg := defaultConfig()
	cfg.LLM.switchProvider("gemini")
	cfg.LLM.switchProvider("openai")

	assert.Equal(t, defaultConfig().LLM.Endpoint, cfg.LLM.Endpoint)
	assert.Equal(t, defaultConfig().LLM.Model, cfg.LLM.Model)

	cfg.LLM.Model = "gpt-4.1"
	cfg.LLM.switchProvider("OpenAI")
	assert.Equal(t, "gpt-4.1", cfg.LLM.Model, "same provider keeps explicit values")
}

func TestValidateRejectsBadFeeds(t *testing.T) {
	cfg := defaultConfig()
	cfg.Feeds = []FeedGroupConfig{
		{Category: "Sports", Feeds: []FeedConfig{{Source: "x", RSSURL: "https://example.org"}}},
		{Category: "Tech", Feeds: []FeedConfig{{Source: "y", RSSURL: "ftp://example.org/feed"}}},
	}
	cfg.Pipeline.Concurrency = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown category "Sports"`)
	assert.Contains(t, err.Error(), "invalid rss_url")
	assert.Contains(t, err.Error(), "concurrency")
}
