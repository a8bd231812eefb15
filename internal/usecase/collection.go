package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

// CollectionDeps wires the collection use case.
type CollectionDeps struct {
	Store  ports.Store
	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Collection manages the dashboard, bookmarks, notes and stored reviews.
type Collection struct {
	store  ports.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// NewCollection constructs the collection use case.
func NewCollection(deps CollectionDeps) *Collection {
	c := &Collection{
		store:  deps.Store,
		logger: deps.Logger,
		now:    deps.Now,
		newID:  deps.NewID,
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Bookmark snapshots a daily insight into the collection. Bookmarking the
// same insight twice returns the existing item.
func (c *Collection) Bookmark(ctx context.Context, insightID string) (domain.CollectionItem, error) {
	existing, err := c.store.BookmarkByInsight(ctx, insightID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.CollectionItem{}, fmt.Errorf("lookup bookmark: %w", err)
	}

	insight, err := c.store.Insight(ctx, insightID)
	if err != nil {
		return domain.CollectionItem{}, fmt.Errorf("insight %s: %w", insightID, err)
	}

	item := domain.CollectionItem{
		ID:         c.newID(),
		InsightID:  insight.ID,
		Title:      insight.Title,
		Summary:    insight.Summary,
		URL:        insight.URL,
		Category:   insight.Category,
		SourceName: insight.SourceName,
		Tags:       []string{},
		CreatedAt:  c.now(),
	}
	if err := c.store.AddBookmark(ctx, item); err != nil {
		return domain.CollectionItem{}, fmt.Errorf("add bookmark: %w", err)
	}
	c.debug("bookmark added", "insight", insightID, "bookmark", item.ID)
	return item, nil
}

// Unbookmark removes the bookmark of an insight together with its note.
func (c *Collection) Unbookmark(ctx context.Context, insightID string) error {
	item, err := c.store.BookmarkByInsight(ctx, insightID)
	if err != nil {
		return fmt.Errorf("bookmark for insight %s: %w", insightID, err)
	}
	if err := c.store.RemoveBookmark(ctx, item.ID); err != nil {
		return fmt.Errorf("remove bookmark: %w", err)
	}
	c.debug("bookmark removed", "insight", insightID, "bookmark", item.ID)
	return nil
}

// SetNote stores the user's note on a bookmark, replacing any earlier one.
func (c *Collection) SetNote(ctx context.Context, bookmarkID, text string) error {
	if err := c.store.UpsertNote(ctx, bookmarkID, text); err != nil {
		return fmt.Errorf("note for bookmark %s: %w", bookmarkID, err)
	}
	return nil
}

// Dashboard lists the current daily feed in category order, highest score
// first, with each entry's bookmark state.
func (c *Collection) Dashboard(ctx context.Context) ([]domain.FeedEntry, error) {
	insights, err := c.store.DailyInsights(ctx)
	if err != nil {
		return nil, fmt.Errorf("load daily insights: %w", err)
	}
	bookmarks, err := c.store.Bookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	notes, err := c.store.Notes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	byInsight := make(map[string]domain.CollectionItem, len(bookmarks))
	for _, b := range bookmarks {
		byInsight[b.InsightID] = b
	}

	sort.SliceStable(insights, func(i, j int) bool {
		ri, rj := insights[i].Category.Rank(), insights[j].Category.Rank()
		if ri != rj {
			return ri < rj
		}
		return insights[i].Score > insights[j].Score
	})

	out := make([]domain.FeedEntry, 0, len(insights))
	for _, in := range insights {
		entry := domain.FeedEntry{CuratedInsight: in}
		if b, ok := byInsight[in.ID]; ok {
			entry.Bookmarked = true
			entry.BookmarkID = b.ID
			entry.Note = notes[b.ID].Content
		}
		out = append(out, entry)
	}
	return out, nil
}

// Bookmarks lists collection items newest first with their notes.
func (c *Collection) Bookmarks(ctx context.Context) ([]domain.BookmarkEntry, error) {
	items, err := c.store.Bookmarks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load bookmarks: %w", err)
	}
	notes, err := c.store.Notes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load notes: %w", err)
	}

	out := make([]domain.BookmarkEntry, 0, len(items))
	for _, item := range items {
		out = append(out, domain.BookmarkEntry{CollectionItem: item, Note: notes[item.ID].Content})
	}
	return out, nil
}

// Reviews lists stored weekly reviews, newest first.
func (c *Collection) Reviews(ctx context.Context) ([]domain.WeeklyReview, error) {
	reviews, err := c.store.Reviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reviews: %w", err)
	}
	return reviews, nil
}

// LatestReview returns the most recent weekly review.
func (c *Collection) LatestReview(ctx context.Context) (domain.WeeklyReview, error) {
	reviews, err := c.Reviews(ctx)
	if err != nil {
		return domain.WeeklyReview{}, err
	}
	if len(reviews) == 0 {
		return domain.WeeklyReview{}, domain.ErrNotFound
	}
	return reviews[0], nil
}

func (c *Collection) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
