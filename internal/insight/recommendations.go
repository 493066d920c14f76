// File path: internal/insight/recommendations.go
package insight

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const minRecommendationRunes = 10

var (
	bulletSplit      = regexp.MustCompile(`[•\-*]\s+`)
	recommendationKw = []string{"recommendation", "mitigation"}
)

// recommendationIndex returns the index of the first section whose heading
// names recommendations or mitigation, or -1.
func recommendationIndex(sections []Section) int {
	fold := cases.Fold()
	for i, s := range sections {
		heading := fold.String(s.Heading)
		for _, kw := range recommendationKw {
			if strings.Contains(heading, kw) {
				return i
			}
		}
	}
	return -1
}

// ExtractRecommendations returns the bullet items of the first
// recommendations or mitigation section. Text before the first bullet and
// fragments of ten runes or fewer are dropped.
func ExtractRecommendations(sections []Section) []string {
	idx := recommendationIndex(sections)
	if idx < 0 {
		return []string{}
	}
	parts := bulletSplit.Split(sections[idx].Content, -1)
	out := make([]string, 0, len(parts))
	for _, part := range parts[1:] {
		item := strings.TrimSpace(part)
		if utf8.RuneCountInString(item) > minRecommendationRunes {
			out = append(out, item)
		}
	}
	return out
}
