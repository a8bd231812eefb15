package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DailyKnowledge/internal/domain"
)

func seededFeed(t *testing.T) *memoryStore {
	t.Helper()
	store := newMemoryStore()
	require.NoError(t, store.SaveDailyInsights(context.Background(), []domain.CuratedInsight{
		{ID: "ai-low", Category: domain.CategoryAI, Title: "Small model", Score: 40, URL: "https://a.example/1", SourceName: "A"},
		{ID: "world", Category: domain.CategoryWorld, Title: "Summit", Score: 70, URL: "https://w.example/1", SourceName: "W"},
		{ID: "ai-high", Category: domain.CategoryAI, Title: "Big model", Score: 90, URL: "https://a.example/2", SourceName: "A"},
	}))
	return store
}

func TestCollectionBookmarkSnapshots(t *testing.T) {
	t.Parallel()

	store := seededFeed(t)
	created := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	c := NewCollection(CollectionDeps{
		Store: store,
		Now:   func() time.Time { return created },
		NewID: func() string { return "bm-1" },
	})
	ctx := context.Background()

	item, err := c.Bookmark(ctx, "ai-high")
	require.NoError(t, err)
	assert.Equal(t, domain.CollectionItem{
		ID:         "bm-1",
		InsightID:  "ai-high",
		Title:      "Big model",
		URL:        "https://a.example/2",
		Category:   domain.CategoryAI,
		SourceName: "A",
		Tags:       []string{},
		CreatedAt:  created,
	}, item)

	again, err := c.Bookmark(ctx, "ai-high")
	require.NoError(t, err)
	assert.Equal(t, item, again)
	all, err := c.Bookmarks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = c.Bookmark(ctx, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCollectionDashboardOrderAndState(t *testing.T) {
	t.Parallel()

	store := seededFeed(t)
	c := NewCollection(CollectionDeps{Store: store})
	ctx := context.Background()

	item, err := c.Bookmark(ctx, "ai-low")
	require.NoError(t, err)
	require.NoError(t, c.SetNote(ctx, item.ID, "compare with last week"))

	entries, err := c.Dashboard(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, []string{"world", "ai-high", "ai-low"}, []string{entries[0].ID, entries[1].ID, entries[2].ID})
	assert.False(t, entries[1].Bookmarked)
	assert.True(t, entries[2].Bookmarked)
	assert.Equal(t, item.ID, entries[2].BookmarkID)
	assert.Equal(t, "compare with last week", entries[2].Note)
}

func TestCollectionUnbookmarkAndNotes(t *testing.T) {
	t.Parallel()

	store := seededFeed(t)
	c := NewCollection(CollectionDeps{Store: store})
	ctx := context.Background()

	item, err := c.Bookmark(ctx, "world")
	require.NoError(t, err)
	require.NoError(t, c.SetNote(ctx, item.ID, "first"))
	require.NoError(t, c.SetNote(ctx, item.ID, "second"))

	entries, err := c.Bookmarks(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Note)

	require.NoError(t, c.Unbookmark(ctx, "world"))
	require.ErrorIs(t, c.Unbookmark(ctx, "world"), domain.ErrNotFound)
	require.ErrorIs(t, c.SetNote(ctx, item.ID, "orphan"), domain.ErrNotFound)

	notes, err := store.Notes(ctx)
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestCollectionLatestReview(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	c := NewCollection(CollectionDeps{Store: store})
	ctx := context.Background()

	_, err := c.LatestReview(ctx)
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, store.SaveReview(ctx, domain.WeeklyReview{ID: "r1"}))
	require.NoError(t, store.SaveReview(ctx, domain.WeeklyReview{ID: "r2"}))

	latest, err := c.LatestReview(ctx)
	require.NoError(t, err)
	assert.Equal(t, "r2", latest.ID)
}
