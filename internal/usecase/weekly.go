package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

const (
	fallbackThemes      = "No themes identified."
	fallbackInsights    = "No insights generated."
	fallbackSuggestions = "No suggestions."
)

// WeeklyDeps wires the weekly synthesis use case.
type WeeklyDeps struct {
	Completer ports.Completer
	Store     ports.Store
	Logger    *slog.Logger
	Language  string
	NewID     func() string
}

// WeeklySynthesizer turns the user's bookmarks and notes into a review.
type WeeklySynthesizer struct {
	completer ports.Completer
	store     ports.Store
	logger    *slog.Logger
	language  string
	newID     func() string
}

// NewWeeklySynthesizer constructs the weekly review use case.
func NewWeeklySynthesizer(deps WeeklyDeps) *WeeklySynthesizer {
	w := &WeeklySynthesizer{
		completer: deps.Completer,
		store:     deps.Store,
		logger:    deps.Logger,
		language:  deps.Language,
		newID:     deps.NewID,
	}
	if w.language == "" {
		w.language = defaultLanguage
	}
	if w.newID == nil {
		w.newID = uuid.NewString
	}
	return w
}

// Generate builds, saves and returns the review for the week containing now.
func (w *WeeklySynthesizer) Generate(ctx context.Context, now time.Time) (domain.WeeklyReview, error) {
	if w.store == nil {
		return domain.WeeklyReview{}, &domain.ConfigError{Err: errors.New("store is not configured")}
	}

	items, err := w.store.Bookmarks(ctx)
	if err != nil {
		return domain.WeeklyReview{}, fmt.Errorf("load bookmarks: %w", err)
	}
	if len(items) == 0 {
		return domain.WeeklyReview{}, domain.ErrInsufficientData
	}

	if w.completer == nil {
		return domain.WeeklyReview{}, &domain.ConfigError{Err: domain.ErrNotConfigured}
	}
	if err := w.completer.Validate(); err != nil {
		return domain.WeeklyReview{}, &domain.ConfigError{Err: err}
	}

	notes, err := w.store.Notes(ctx)
	if err != nil {
		return domain.WeeklyReview{}, fmt.Errorf("load notes: %w", err)
	}

	text, err := w.completer.Complete(ctx, w.buildRequest(items, notes))
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return domain.WeeklyReview{}, &domain.ConfigError{Err: err}
		}
		return domain.WeeklyReview{}, &domain.CurationError{Err: err}
	}

	review := domain.WeeklyReview{
		ID:        w.newID(),
		WeekRange: WeekRange(now),
		CreatedAt: now,
	}
	review.Themes, review.Insights, review.NextWeekSuggestions = w.parse(text)

	if err := w.store.SaveReview(ctx, review); err != nil {
		return domain.WeeklyReview{}, fmt.Errorf("save review: %w", err)
	}
	w.debug("weekly review generated", "bookmarks", len(items), "week", review.WeekRange)
	return review, nil
}

func (w *WeeklySynthesizer) buildRequest(items []domain.CollectionItem, notes map[string]domain.Note) ports.CompletionRequest {
	var lines strings.Builder
	for _, item := range items {
		note := "None"
		if n, ok := notes[item.ID]; ok && strings.TrimSpace(n.Content) != "" {
			note = strings.TrimSpace(n.Content)
		}
		fmt.Fprintf(&lines, "- [%s] %s: %s. User note: %s\n", item.Category, item.Title, item.Summary, note)
	}

	task := fmt.Sprintf(`Based on the articles the user bookmarked this week, write a weekly review.

Provide:
1. themes: the topics the user focused on.
2. insights: one or two deeper insights synthesized from the articles.
3. nextWeekSuggestions: two or three specific topics or questions to explore next.

Write every field in %s.`, w.language)

	return ports.CompletionRequest{
		System:     "You are a thoughtful reading coach. Answer only with JSON that matches the declared schema.",
		Parts:      []string{task, "Bookmarked articles:\n" + strings.TrimRight(lines.String(), "\n")},
		SchemaName: "weekly_review",
		Schema: &ports.Schema{
			Type: "object",
			Properties: map[string]*ports.Schema{
				"themes":              {Type: "string"},
				"insights":            {Type: "string"},
				"nextWeekSuggestions": {Type: "string"},
			},
			Required: []string{"themes", "insights", "nextWeekSuggestions"},
		},
	}
}

// parse falls back per field, so a malformed reply still yields a review.
func (w *WeeklySynthesizer) parse(text string) (themes, insights, suggestions string) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		if w.logger != nil {
			w.logger.Warn("weekly review response is not a JSON object", "error", err)
		}
		raw = nil
	}
	return stringField(raw, "themes", fallbackThemes),
		stringField(raw, "insights", fallbackInsights),
		stringField(raw, "nextWeekSuggestions", fallbackSuggestions)
}

func stringField(raw map[string]json.RawMessage, key, fallback string) string {
	value, ok := raw[key]
	if !ok {
		return fallback
	}
	var s string
	if err := json.Unmarshal(value, &s); err != nil || strings.TrimSpace(s) == "" {
		return fallback
	}
	return strings.TrimSpace(s)
}

// WeekRange formats the Monday to Sunday span containing t.
func WeekRange(t time.Time) string {
	offset := (int(t.Weekday()) + 6) % 7
	monday := time.Date(t.Year(), t.Month(), t.Day()-offset, 0, 0, 0, 0, t.Location())
	sunday := monday.AddDate(0, 0, 6)
	return monday.Format(domain.DateLayout) + " – " + sunday.Format(domain.DateLayout)
}

func (w *WeeklySynthesizer) debug(msg string, args ...interface{}) {
	if w.logger != nil {
		w.logger.Debug(msg, args...)
	}
}
