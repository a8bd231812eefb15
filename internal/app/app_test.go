package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/logging"
)

const testFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>Lab</title>
<item><title>Model one</title><link>https://lab.example/1</link><description>First.</description></item>
<item><title>Model two</title><link>https://lab.example/2</link><description>Second.</description></item>
</channel></rss>`

// The model answers with a fabricated url that must never reach the store.
const testCompletion = `{"choices":[{"message":{"content":"{\"result\":[{\"original_id\":1,\"title\":\"Second model\",\"summary\":\"It shipped.\",\"score\":88,\"url\":\"https://fake.example\"}]}"}}]}`

func testConfig(t *testing.T, feedURL, llmURL string) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Logging:   config.LoggingConfig{Level: "error"},
		Database:  config.DatabaseConfig{Driver: "sqlite", DSN: filepath.Join(dir, "app.db")},
		Scheduler: config.SchedulerConfig{CronExpression: "0 7 * * *", Timezone: "UTC"},
		LLM:       config.LLMConfig{Provider: "openai", Endpoint: llmURL, Model: "test", APIKey: "key", Timeout: 5 * time.Second},
		Pipeline: config.PipelineConfig{
			ItemsPerSource: 3,
			FetchTimeout:   2 * time.Second,
			MaxPicks:       5,
			SnippetLength:  300,
			Concurrency:    2,
		},
		Feeds: []config.FeedGroupConfig{
			{Category: "AI", Feeds: []config.FeedConfig{{Source: "Lab", RSSURL: feedURL}}},
		},
		Archive: config.ArchiveConfig{Dir: filepath.Join(dir, "data")},
	}
}

func TestApplicationFetchEndToEnd(t *testing.T) {
	t.Parallel()

	feedSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, testFeed)
	}))
	defer feedSrv.Close()
	llmSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, testCompletion)
	}))
	defer llmSrv.Close()

	cfg := testConfig(t, feedSrv.URL, llmSrv.URL)
	ctx := context.Background()
	application, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer application.Close()

	run, ran, err := application.Fetch(ctx, false)
	require.NoError(t, err)
	require.True(t, ran)
	require.Equal(t, 1, run.TotalCount)
	assert.Equal(t, "https://lab.example/2", run.Insights[0].URL)
	assert.Equal(t, "Lab", run.Insights[0].SourceName)

	_, ran, err = application.Fetch(ctx, false)
	require.NoError(t, err)
	assert.False(t, ran, "second fetch on the same day is skipped")

	entries, err := application.Collection().Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.CategoryAI, entries[0].Category)

	_, err = os.Stat(filepath.Join(cfg.Archive.Dir, fmt.Sprintf("daily_summaries_%s.json", run.Date)))
	require.NoError(t, err)
}

func TestApplicationRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://feeds.example/rss", "https://llm.example")
	cfg.Feeds[0].Category = "Sports"

	_, err := New(context.Background(), cfg, logging.Discard())
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
}

func TestApplicationReviewNeedsBookmarks(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, "https://feeds.example/rss", "https://llm.example")
	application, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer application.Close()

	_, err = application.GenerateReview(context.Background())
	require.ErrorIs(t, err, domain.ErrInsufficientData)
}
