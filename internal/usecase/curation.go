package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/metrics"
	"DailyKnowledge/internal/ports"
)

const (
	defaultMaxPicks      = 5
	defaultSnippetLength = 300
	defaultLanguage      = "English"
	maxCleanPasses       = 8
)

// Reconciliation drop reasons.
const (
	dropIndexOutOfRange = "index_out_of_range"
	dropDuplicateIndex  = "duplicate_index"
	dropScoreOutOfRange = "score_out_of_range"
	dropEmptyText       = "empty_text"
)

// CuratorDeps wires the summarization service and tuning knobs into the Curator.
type CuratorDeps struct {
	Completer     ports.Completer
	Metrics       *metrics.Pipeline
	Logger        *slog.Logger
	MaxPicks      int
	SnippetLength int
	Language      string
	Now           func() time.Time
	NewID         func() string
}

// Curator asks the summarization service to pick and summarize the most
// significant candidates of one category, then maps every pick back onto
// the trusted candidate it names.
type Curator struct {
	completer     ports.Completer
	metrics       *metrics.Pipeline
	logger        *slog.Logger
	policy        *bluemonday.Policy
	maxPicks      int
	snippetLength int
	language      string
	now           func() time.Time
	newID         func() string
}

// NewCurator constructs the curation client.
func NewCurator(deps CuratorDeps) *Curator {
	c := &Curator{
		completer:     deps.Completer,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		policy:        bluemonday.StrictPolicy(),
		maxPicks:      deps.MaxPicks,
		snippetLength: deps.SnippetLength,
		language:      deps.Language,
		now:           deps.Now,
		newID:         deps.NewID,
	}
	if c.maxPicks <= 0 {
		c.maxPicks = defaultMaxPicks
	}
	if c.snippetLength <= 0 {
		c.snippetLength = defaultSnippetLength
	}
	if c.language == "" {
		c.language = defaultLanguage
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = uuid.NewString
	}
	return c
}

// Validate fails with a *domain.ConfigError when no request can be sent.
func (c *Curator) Validate() error {
	if c.completer == nil {
		return &domain.ConfigError{Err: domain.ErrNotConfigured}
	}
	if err := c.completer.Validate(); err != nil {
		return &domain.ConfigError{Err: err}
	}
	return nil
}

// Curate runs one remote call for the category. A failed call yields no
// insights and a *domain.CurationError; a missing credential yields a
// *domain.ConfigError before any request is made. Picks that cannot be
// resolved against candidates are dropped without an error.
func (c *Curator) Curate(ctx context.Context, category domain.Category, candidates []domain.RawCandidate) ([]domain.CuratedInsight, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	req, err := c.buildRequest(category, candidates)
	if err != nil {
		return nil, c.fail(category, fmt.Errorf("build prompt: %w", err))
	}

	text, err := c.completer.Complete(ctx, req)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return nil, &domain.ConfigError{Err: err}
		}
		return nil, c.fail(category, err)
	}

	picks, err := decodeSelections(text)
	if err != nil {
		return nil, c.fail(category, err)
	}

	insights := c.reconcile(category, candidates, picks)
	c.debug("category curated", "category", category, "candidates", len(candidates), "picks", len(picks), "kept", len(insights))
	return insights, nil
}

func (c *Curator) fail(category domain.Category, err error) error {
	c.metrics.CurationFailed(string(category))
	if c.logger != nil {
		c.logger.Error("curation failed", "category", category, "error", err)
	}
	return &domain.CurationError{Category: category, Err: err}
}

type promptItem struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

func (c *Curator) buildRequest(category domain.Category, candidates []domain.RawCandidate) (ports.CompletionRequest, error) {
	items := make([]promptItem, len(candidates))
	for i, cand := range candidates {
		items[i] = promptItem{
			ID:      i,
			Title:   cand.Title,
			Source:  cand.SourceName,
			Snippet: truncateRunes(cand.ContentSnippet, c.snippetLength),
		}
	}
	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return ports.CompletionRequest{}, err
	}

	task := fmt.Sprintf(`Task: curate the "Daily Top %[1]d" digest for category %[2]q.

Input: a JSON list of raw RSS items, each with an integer id.

Instructions:
1. Select at most %[1]d of the most significant, unique stories.
2. If several items report the same event, keep only the best one.
3. Summarize each selection in 2-3 sentences, at most 60 words, capturing the key insight.
4. Score each selection from 0 to 100 by importance.
5. Write titles and summaries in %[3]s.
6. Return "original_id" exactly as given in the input. Never return URLs; links are restored from original_id.`,
		c.maxPicks, string(category), c.language)

	return ports.CompletionRequest{
		System:     "Role: Senior News Editor. You curate daily news digests and answer only with JSON that matches the declared schema.",
		Parts:      []string{task, strings.TrimSpace(payload.String())},
		SchemaName: "curated_selection",
		Schema:     selectionSchema(),
	}, nil
}

func selectionSchema() *ports.Schema {
	lo, hi := 0, 100
	return &ports.Schema{
		Type: "array",
		Items: &ports.Schema{
			Type: "object",
			Properties: map[string]*ports.Schema{
				"original_id": {Type: "integer", Description: "The exact id from the input list"},
				"title":       {Type: "string"},
				"summary":     {Type: "string"},
				"score":       {Type: "integer", Description: "Importance score 0-100", Minimum: &lo, Maximum: &hi},
			},
			Required: []string{"original_id", "title", "summary", "score"},
		},
	}
}

type selection struct {
	OriginalID *int    `json:"original_id"`
	Title      *string `json:"title"`
	Summary    *string `json:"summary"`
	Score      *int    `json:"score"`
}

// decodeSelections rejects anything that is not an array of objects carrying
// every required field with the declared type. Unknown fields are ignored.
func decodeSelections(text string) ([]selection, error) {
	trimmed := bytes.TrimSpace([]byte(text))
	if len(trimmed) == 0 {
		return nil, errors.New("empty response")
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("response is not a JSON array: %w", err)
	}

	out := make([]selection, 0, len(raw))
	for i, elem := range raw {
		var s selection
		if err := json.Unmarshal(elem, &s); err != nil {
			return nil, fmt.Errorf("element %d violates schema: %w", i, err)
		}
		switch {
		case s.OriginalID == nil:
			return nil, fmt.Errorf("element %d violates schema: missing original_id", i)
		case s.Title == nil:
			return nil, fmt.Errorf("element %d violates schema: missing title", i)
		case s.Summary == nil:
			return nil, fmt.Errorf("element %d violates schema: missing summary", i)
		case s.Score == nil:
			return nil, fmt.Errorf("element %d violates schema: missing score", i)
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *Curator) reconcile(category domain.Category, candidates []domain.RawCandidate, picks []selection) []domain.CuratedInsight {
	out := make([]domain.CuratedInsight, 0, c.maxPicks)
	used := make(map[int]struct{}, len(picks))
	now := c.now()

	for _, pick := range picks {
		if len(out) >= c.maxPicks {
			c.debug("selection limit reached", "category", category, "limit", c.maxPicks, "returned", len(picks))
			break
		}

		idx := *pick.OriginalID
		if idx < 0 || idx >= len(candidates) {
			c.drop(category, idx, dropIndexOutOfRange)
			continue
		}
		if _, ok := used[idx]; ok {
			c.drop(category, idx, dropDuplicateIndex)
			continue
		}
		if *pick.Score < 0 || *pick.Score > 100 {
			c.drop(category, idx, dropScoreOutOfRange)
			continue
		}
		title := c.clean(*pick.Title)
		summary := c.clean(*pick.Summary)
		if title == "" || summary == "" {
			c.drop(category, idx, dropEmptyText)
			continue
		}
		used[idx] = struct{}{}

		original := candidates[idx]
		out = append(out, domain.CuratedInsight{
			ID:         c.newID(),
			Category:   category,
			Title:      title,
			Summary:    summary,
			Score:      *pick.Score,
			URL:        original.URL,
			SourceName: original.SourceName,
			CreatedAt:  now,
		})
	}

	c.metrics.InsightsProduced(string(category), len(out))
	return out
}

func (c *Curator) drop(category domain.Category, index int, reason string) {
	c.metrics.SelectionDropped(string(category), reason)
	if c.logger != nil {
		c.logger.Warn("reconciliation mismatch", "category", category, "original_id", index, "reason", reason)
	}
}

// clean strips markup, including tags hidden behind HTML entities.
func (c *Curator) clean(s string) string {
	for i := 0; i < maxCleanPasses; i++ {
		sanitized := c.policy.Sanitize(s)
		next := html.UnescapeString(sanitized)
		if next == s {
			return strings.TrimSpace(next)
		}
		if i == maxCleanPasses-1 {
			return strings.TrimSpace(sanitized)
		}
		s = next
	}
	return strings.TrimSpace(s)
}

func (c *Curator) debug(msg string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
