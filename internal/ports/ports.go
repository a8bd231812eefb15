package ports

import (
	"context"
	"time"

	"DailyKnowledge/internal/domain"
)

// FeedRetriever pulls the latest candidates from one feed endpoint.
type FeedRetriever interface {
	Retrieve(ctx context.Context, source domain.FeedSource) ([]domain.RawCandidate, error)
}

// Completer sends one structured prompt to a generative model and returns
// the raw response text. The caller validates the text.
type Completer interface {
	// Validate reports domain.ErrNotConfigured when no request can be made.
	Validate() error
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is a role-tagged prompt plus the output schema the model must follow.
type CompletionRequest struct {
	System     string
	Parts      []string
	SchemaName string
	Schema     *Schema
}

// Schema is the subset of JSON Schema understood by every provider.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Minimum     *int               `json:"minimum,omitempty"`
	Maximum     *int               `json:"maximum,omitempty"`
}

// InsightStore keeps the current daily feed. Saving replaces the whole set.
type InsightStore interface {
	SaveDailyInsights(ctx context.Context, insights []domain.CuratedInsight) error
	DailyInsights(ctx context.Context) ([]domain.CuratedInsight, error)
	Insight(ctx context.Context, id string) (domain.CuratedInsight, error)
}

// BookmarkStore keeps collection items and their notes.
type BookmarkStore interface {
	AddBookmark(ctx context.Context, item domain.CollectionItem) error
	RemoveBookmark(ctx context.Context, id string) error
	BookmarkByInsight(ctx context.Context, insightID string) (domain.CollectionItem, error)
	Bookmarks(ctx context.Context) ([]domain.CollectionItem, error)
	UpsertNote(ctx context.Context, collectionID, content string) error
	Notes(ctx context.Context) (map[string]domain.Note, error)
}

// ReviewStore keeps generated weekly reviews, newest first.
type ReviewStore interface {
	SaveReview(ctx context.Context, review domain.WeeklyReview) error
	Reviews(ctx context.Context) ([]domain.WeeklyReview, error)
}

// Store is the full persistence collaborator.
type Store interface {
	InsightStore
	BookmarkStore
	ReviewStore
}

// Notifier announces a finished daily feed.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// RunArchive keeps a copy of each daily run outside the store.
type RunArchive interface {
	Write(ctx context.Context, run domain.DailyRun) error
}

// Scheduler controls when pipelines execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
