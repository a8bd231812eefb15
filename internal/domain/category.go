package domain

import "fmt"

// Category is a topic label shared by feed sources and curated insights.
type Category string

const (
	CategoryWorld      Category = "World"
	CategoryTech       Category = "Tech"
	CategoryAI         Category = "AI"
	CategoryBusiness   Category = "Business"
	CategoryHumanities Category = "Humanities"
	CategoryIdeas      Category = "Ideas"
)

var categoryOrder = []Category{
	CategoryWorld,
	CategoryTech,
	CategoryAI,
	CategoryBusiness,
	CategoryHumanities,
	CategoryIdeas,
}

// Categories returns the taxonomy in canonical display order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ParseCategory resolves a label to a known category.
func ParseCategory(value string) (Category, error) {
	for _, c := range categoryOrder {
		if string(c) == value {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", value)
}

// Rank is the position of the category in canonical order; unknown labels sort last.
func (c Category) Rank() int {
	for i, known := range categoryOrder {
		if known == c {
			return i
		}
	}
	return len(categoryOrder)
}

func (c Category) String() string {
	return string(c)
}
