package sources

import (
	"fmt"
	"sort"

	"DailyKnowledge/internal/config"
	"DailyKnowledge/internal/domain"
)

// Group is one category with its feed endpoints.
type Group struct {
	Category domain.Category
	Feeds    []domain.FeedSource
}

// Registry maps each category to its feeds. It is built once and never mutated.
type Registry struct {
	groups []Group
}

// NewRegistry builds a registry from explicit groups, ordered by category.
// Groups sharing a category are merged.
func NewRegistry(groups ...Group) *Registry {
	byCategory := map[domain.Category]int{}
	var merged []Group
	for _, g := range groups {
		feeds := make([]domain.FeedSource, len(g.Feeds))
		copy(feeds, g.Feeds)
		for i := range feeds {
			feeds[i].Category = g.Category
		}
		if idx, ok := byCategory[g.Category]; ok {
			merged[idx].Feeds = append(merged[idx].Feeds, feeds...)
			continue
		}
		byCategory[g.Category] = len(merged)
		merged = append(merged, Group{Category: g.Category, Feeds: feeds})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Category.Rank() < merged[j].Category.Rank()
	})
	return &Registry{groups: merged}
}

// FromConfig turns the feeds section of the configuration into a registry.
func FromConfig(cfg []config.FeedGroupConfig) (*Registry, error) {
	groups := make([]Group, 0, len(cfg))
	for _, g := range cfg {
		category, err := domain.ParseCategory(g.Category)
		if err != nil {
			return nil, fmt.Errorf("feed registry: %w", err)
		}
		feeds := make([]domain.FeedSource, 0, len(g.Feeds))
		for _, f := range g.Feeds {
			feeds = append(feeds, domain.FeedSource{
				Name:        f.Source,
				EndpointURL: f.RSSURL,
				Category:    category,
			})
		}
		groups = append(groups, Group{Category: category, Feeds: feeds})
	}
	return NewRegistry(groups...), nil
}

// Groups returns a copy of all groups in category order.
func (r *Registry) Groups() []Group {
	out := make([]Group, len(r.groups))
	for i, g := range r.groups {
		feeds := make([]domain.FeedSource, len(g.Feeds))
		copy(feeds, g.Feeds)
		out[i] = Group{Category: g.Category, Feeds: feeds}
	}
	return out
}

// Categories lists the registered categories in order.
func (r *Registry) Categories() []domain.Category {
	out := make([]domain.Category, len(r.groups))
	for i, g := range r.groups {
		out[i] = g.Category
	}
	return out
}

// Resolve returns the feeds of a category or an error if it is absent.
func (r *Registry) Resolve(category domain.Category) ([]domain.FeedSource, error) {
	for _, g := range r.groups {
		if g.Category == category {
			feeds := make([]domain.FeedSource, len(g.Feeds))
			copy(feeds, g.Feeds)
			return feeds, nil
		}
	}
	return nil, fmt.Errorf("category %s is not registered", category)
}
