package search

import (
	"strings"
)

// MatchQuery reports whether text satisfies the free-text query q.
// A query containing commas is a list of OR keywords; otherwise the whole
// query is a phrase that must appear, whitespace-normalized. Matching is
// case-insensitive and an empty query matches everything.
func MatchQuery(q, text string) bool {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return true
	}
	text = strings.ToLower(text)

	if strings.Contains(q, ",") {
		for _, kw := range strings.Split(q, ",") {
			kw = strings.TrimSpace(kw)
			if kw != "" && strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
	return strings.Contains(collapseSpaces(text), collapseSpaces(q))
}

// ExcludeWords splits an exclusion list on commas and whitespace.
func ExcludeWords(exclude string) []string {
	return strings.FieldsFunc(strings.ToLower(exclude), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// Excluded reports whether text contains any of the excluded words.
func Excluded(words []string, text string) bool {
	if len(words) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, w := range words {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
