package domain

import "time"

// DateLayout is the calendar-day format used for daily feeds.
const DateLayout = "2006-01-02"

// FeedSource is one configured feed endpoint.
type FeedSource struct {
	Name        string
	EndpointURL string
	Category    Category
}

// RawCandidate is a feed item before curation.
type RawCandidate struct {
	Title          string
	ContentSnippet string
	URL            string
	SourceName     string
	PublishedAt    *time.Time
}

// CuratedInsight is a feed item after curation. URL and SourceName always
// come from the originating RawCandidate.
type CuratedInsight struct {
	ID         string    `json:"id"`
	Date       string    `json:"date"`
	Category   Category  `json:"category"`
	Title      string    `json:"title"`
	Summary    string    `json:"summary"`
	Score      int       `json:"score"`
	URL        string    `json:"url"`
	SourceName string    `json:"source_name"`
	CreatedAt  time.Time `json:"created_at"`
}

// CollectionItem is a bookmark: a snapshot of an insight taken when the
// user saved it. It does not follow later changes to the daily feed.
type CollectionItem struct {
	ID         string
	InsightID  string
	Title      string
	Summary    string
	URL        string
	Category   Category
	SourceName string
	Tags       []string
	CreatedAt  time.Time
}

// Note is the user's free text attached to a collection item.
type Note struct {
	CollectionID string
	Content      string
	UpdatedAt    time.Time
}

// WeeklyReview is a synthesis of the user's bookmarks.
type WeeklyReview struct {
	ID                  string
	WeekRange           string
	Themes              string
	Insights            string
	NextWeekSuggestions string
	CreatedAt           time.Time
}

// DailyRun is the outcome of one fetch cycle.
type DailyRun struct {
	Date        string           `json:"date"`
	GeneratedAt time.Time        `json:"generated_at"`
	TotalCount  int              `json:"total_count"`
	Errors      []string         `json:"errors"`
	Insights    []CuratedInsight `json:"data"`
}

// FeedEntry is a daily insight joined with its bookmark state.
type FeedEntry struct {
	CuratedInsight
	Bookmarked bool
	BookmarkID string
	Note       string
}

// BookmarkEntry is a collection item joined with its note.
type BookmarkEntry struct {
	CollectionItem
	Note string
}
