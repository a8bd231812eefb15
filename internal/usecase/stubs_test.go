package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"DailyKnowledge/internal/domain"
	"DailyKnowledge/internal/ports"
)

// stubCompleter answers every request through respond and records the calls.
type stubCompleter struct {
	mu          sync.Mutex
	respond     func(req ports.CompletionRequest) (string, error)
	validateErr error
	requests    []ports.CompletionRequest
}

func fixedCompleter(text string) *stubCompleter {
	return &stubCompleter{respond: func(ports.CompletionRequest) (string, error) { return text, nil }}
}

func (s *stubCompleter) Validate() error { return s.validateErr }

func (s *stubCompleter) Complete(_ context.Context, req ports.CompletionRequest) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.validateErr != nil {
		return "", s.validateErr
	}
	return s.respond(req)
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// stubRetriever serves canned candidates per source name.
type stubRetriever struct {
	mu      sync.Mutex
	items   map[string][]domain.RawCandidate
	failing map[string]bool
	seen    []string
}

func (s *stubRetriever) Retrieve(_ context.Context, src domain.FeedSource) ([]domain.RawCandidate, error) {
	s.mu.Lock()
	s.seen = append(s.seen, src.Name)
	s.mu.Unlock()
	if s.failing[src.Name] {
		return []domain.RawCandidate{}, &domain.SourceError{Source: src.Name, Err: fmt.Errorf("connection refused")}
	}
	return s.items[src.Name], nil
}

func (s *stubRetriever) fetched() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// memoryStore is an in-memory ports.Store.
type memoryStore struct {
	mu        sync.Mutex
	insights  []domain.CuratedInsight
	bookmarks []domain.CollectionItem
	notes     map[string]domain.Note
	reviews   []domain.WeeklyReview
	saves     int
}

var _ ports.Store = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{notes: map[string]domain.Note{}}
}

func (m *memoryStore) SaveDailyInsights(_ context.Context, insights []domain.CuratedInsight) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	m.insights = append([]domain.CuratedInsight(nil), insights...)
	return nil
}

func (m *memoryStore) DailyInsights(context.Context) ([]domain.CuratedInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CuratedInsight(nil), m.insights...), nil
}

func (m *memoryStore) Insight(_ context.Context, id string) (domain.CuratedInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, in := range m.insights {
		if in.ID == id {
			return in, nil
		}
	}
	return domain.CuratedInsight{}, domain.ErrNotFound
}

func (m *memoryStore) AddBookmark(_ context.Context, item domain.CollectionItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bookmarks = append(m.bookmarks, item)
	return nil
}

func (m *memoryStore) RemoveBookmark(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, b := range m.bookmarks {
		if b.ID == id {
			m.bookmarks = append(m.bookmarks[:i], m.bookmarks[i+1:]...)
			delete(m.notes, id)
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memoryStore) BookmarkByInsight(_ context.Context, insightID string) (domain.CollectionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookmarks {
		if b.InsightID == insightID {
			return b, nil
		}
	}
	return domain.CollectionItem{}, domain.ErrNotFound
}

func (m *memoryStore) Bookmarks(context.Context) ([]domain.CollectionItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CollectionItem, 0, len(m.bookmarks))
	for i := len(m.bookmarks) - 1; i >= 0; i-- {
		out = append(out, m.bookmarks[i])
	}
	return out, nil
}

func (m *memoryStore) UpsertNote(_ context.Context, collectionID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookmarks {
		if b.ID == collectionID {
			m.notes[collectionID] = domain.Note{CollectionID: collectionID, Content: content, UpdatedAt: time.Now()}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memoryStore) Notes(context.Context) (map[string]domain.Note, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]domain.Note, len(m.notes))
	for k, v := range m.notes {
		out[k] = v
	}
	return out, nil
}

func (m *memoryStore) SaveReview(_ context.Context, review domain.WeeklyReview) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reviews = append([]domain.WeeklyReview{review}, m.reviews...)
	return nil
}

func (m *memoryStore) Reviews(context.Context) ([]domain.WeeklyReview, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.WeeklyReview(nil), m.reviews...), nil
}

func candidates(n int, prefix string) []domain.RawCandidate {
	out := make([]domain.RawCandidate, n)
	for i := range out {
		out[i] = domain.RawCandidate{
			Title:          fmt.Sprintf("%s story %d", prefix, i),
			ContentSnippet: fmt.Sprintf("snippet %d", i),
			URL:            fmt.Sprintf("https://%s.example/%d", prefix, i),
			SourceName:     prefix + " source",
		}
	}
	return out
}
