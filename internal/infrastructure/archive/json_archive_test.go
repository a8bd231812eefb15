package archive

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyKnowledge/internal/domain"
)

func TestWriteUsesArchiveLayout(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "data")
	a := NewJSONArchive(dir)
	generated := time.Date(2025, 3, 14, 7, 0, 0, 0, time.UTC)
	run := domain.DailyRun{
		Date:        "2025-03-14",
		GeneratedAt: generated,
		TotalCount:  1,
		Insights: []domain.CuratedInsight{
			{ID: "x", Date: "2025-03-14", Category: domain.CategoryAI, Title: "T", Summary: "S", Score: 77, URL: "https://a.example/1", SourceName: "A", CreatedAt: generated},
		},
	}

	require.NoError(t, a.Write(context.Background(), run))

	raw, err := os.ReadFile(filepath.Join(dir, "daily_summaries_2025-03-14.json"))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, "2025-03-14", doc["date"])
	assert.EqualValues(t, 1, doc["total_count"])
	assert.Equal(t, []any{}, doc["errors"])
	data := doc["data"].([]any)
	require.Len(t, data, 1)
	assert.Equal(t, "https://a.example/1", data[0].(map[string]any)["url"])

	back, err := a.Read("2025-03-14")
	require.NoError(t, err)
	assert.Equal(t, run.Insights, back.Insights)
	assert.True(t, back.GeneratedAt.Equal(generated))

	_, err = a.Read("1999-01-01")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestWriteRequiresDate(t *testing.T) {
	t.Parallel()

	require.Error(t, NewJSONArchive(t.TempDir()).Write(context.Background(), domain.DailyRun{}))
}
