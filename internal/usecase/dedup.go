package usecase

import (
	"strings"

	"DailyKnowledge/internal/domain"
)

// Deduplicate keeps the first candidate per normalized title, preserving
// input order. It is safe to apply repeatedly.
func Deduplicate(candidates []domain.RawCandidate) []domain.RawCandidate {
	out := make([]domain.RawCandidate, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		key := normalizeTitle(c.Title)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

func normalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
