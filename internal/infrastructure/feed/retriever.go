package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

const (
	defaultLimit     = 3
	defaultTimeout   = 5 * time.Second
	defaultUserAgent = "DailyKnowledgeBot/1.0"
)

// Options bounds a single retrieval.
type Options struct {
	Limit     int
	Timeout   time.Duration
	UserAgent string
}

// Retriever fetches one feed endpoint and normalizes its newest items.
type Retriever struct {
	client    *http.Client
	limit     int
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
}

var _ ports.FeedRetriever = (*Retriever)(nil)

// NewRetriever wires an HTTP client; zero options fall back to 3 items, 5s and the bot User-Agent.
func NewRetriever(client *http.Client, opts Options, log *slog.Logger) *Retriever {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Limit <= 0 {
		opts.Limit = defaultLimit
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &Retriever{
		client:    client,
		limit:     opts.Limit,
		timeout:   opts.Timeout,
		userAgent: opts.UserAgent,
		logger:    log,
	}
}

// Retrieve returns up to limit valid items of the source. Any failure yields
// an empty slice and a *domain.SourceError; nothing is retried.
func (r *Retriever) Retrieve(ctx context.Context, source domain.FeedSource) ([]domain.RawCandidate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	parsed, err := r.fetchFeed(ctx, source.EndpointURL)
	if err != nil {
		return []domain.RawCandidate{}, &domain.SourceError{Source: source.Name, Err: err}
	}

	items := newestFirst(parsed.Items)
	out := make([]domain.RawCandidate, 0, r.limit)
	dropped := 0
	for _, item := range items {
		if len(out) >= r.limit {
			break
		}
		candidate, ok := normalizeItem(item, source.Name)
		if !ok {
			dropped++
			continue
		}
		out = append(out, candidate)
	}

	r.debug("feed retrieved", "source", source.Name, "items", len(parsed.Items), "kept", len(out), "dropped", dropped)
	return out, nil
}

func (r *Retriever) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	parsed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	return parsed, nil
}

// newestFirst orders items by publish date when every item has one; otherwise
// the feed's own order is kept.
func newestFirst(items []*gofeed.Item) []*gofeed.Item {
	out := make([]*gofeed.Item, 0, len(items))
	for _, item := range items {
		if item != nil {
			out = append(out, item)
		}
	}
	for _, item := range out {
		if publishedAt(item) == nil {
			return out
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return publishedAt(out[i]).After(*publishedAt(out[j]))
	})
	return out
}

func normalizeItem(item *gofeed.Item, sourceName string) (domain.RawCandidate, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return domain.RawCandidate{}, false
	}

	link := strings.TrimSpace(item.Link)
	if !IsValidLink(link) {
		return domain.RawCandidate{}, false
	}

	raw := item.Description
	if strings.TrimSpace(raw) == "" {
		raw = item.Content
	}

	return domain.RawCandidate{
		Title:          title,
		ContentSnippet: plainText(raw),
		URL:            link,
		SourceName:     sourceName,
		PublishedAt:    publishedAt(item),
	}, true
}

// IsValidLink reports whether link is an absolute http(s) URL with a host.
func IsValidLink(link string) bool {
	if !strings.HasPrefix(strings.ToLower(link), "http") {
		return false
	}
	u, err := url.Parse(link)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func publishedAt(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	return item.UpdatedParsed
}

func plainText(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	text := raw
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw)); err == nil {
		text = doc.Text()
	}
	return strings.Join(strings.Fields(text), " ")
}

func (r *Retriever) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
