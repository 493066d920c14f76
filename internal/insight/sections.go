// File path: internal/insight/sections.go
package insight

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Section is one paragraph of analyst text, optionally headed.
type Section struct {
	Heading string `json:"heading"`
	Content string `json:"content"`
}

const maxHeadingRunes = 80

var paragraphBreak = regexp.MustCompile(`\n\n+`)

// ParseSections splits provider text into paragraphs and guesses which first
// lines are headings. The guess is a heuristic: a short first line that starts
// with an uppercase letter, or any short first line followed by more lines,
// counts as a heading. Short capitalised sentences are misread as headings
// and that is accepted.
func ParseSections(text string) []Section {
	sections := make([]Section, 0)
	for _, paragraph := range paragraphBreak.Split(text, -1) {
		lines := strings.Split(paragraph, "\n")
		first := strings.TrimSpace(strings.TrimLeftFunc(lines[0], func(r rune) bool {
			return r == '#' || r == '*' || unicode.IsSpace(r)
		}))
		multiline := len(lines) > 1
		heading := utf8.RuneCountInString(first) < maxHeadingRunes && (startsUpper(first) || multiline)

		var section Section
		if heading && multiline {
			section.Heading = trimHeadingColon(first)
			section.Content = strings.TrimSpace(strings.Join(lines[1:], " "))
		} else {
			section.Content = strings.TrimSpace(paragraph)
		}
		if section.Content == "" {
			continue
		}
		sections = append(sections, section)
	}
	return sections
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

func trimHeadingColon(s string) string {
	if strings.HasSuffix(s, ":") {
		return strings.TrimSuffix(s, ":")
	}
	return strings.TrimSuffix(s, "：")
}
