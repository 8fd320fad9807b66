package search

import (
	"strings"
	"time"

	"github.com/mctn/comtracker/pkg/models"
	"github.com/mctn/comtracker/pkg/utils"
)

// Matcher re-applies SearchCriteria to articles, guarding against
// upstream services that ignore some filters. Build one with NewMatcher
// and reuse it across articles.
type Matcher struct {
	start, end       time.Time
	hasStart, hasEnd bool
	lang, country    string
}

// NewMatcher prepares the date window and lower-cased filters of c.
// Unparseable start/end values disable that bound.
func NewMatcher(c models.SearchCriteria) *Matcher {
	m := &Matcher{
		lang:    strings.ToLower(c.Lang),
		country: strings.ToLower(c.Country),
	}
	if c.Start != "" {
		m.start, m.hasStart = utils.DayStart(c.Start)
	}
	if c.End != "" {
		m.end, m.hasEnd = utils.DayEnd(c.End)
	}
	return m
}

// Match reports whether a passes every filter. Articles without a parseable
// date, language or country are never excluded by that filter.
func (m *Matcher) Match(a models.Article) bool {
	if m.hasStart || m.hasEnd {
		if d, ok := utils.ParseTimestamp(a.Date); ok {
			if m.hasStart && d.Before(m.start) {
				return false
			}
			if m.hasEnd && d.After(m.end) {
				return false
			}
		}
	}
	if m.lang != "" && a.Langue != "" && strings.ToLower(a.Langue) != m.lang {
		return false
	}
	if m.country != "" && a.Country != "" && strings.ToLower(a.Country) != m.country {
		return false
	}
	return true
}

// Filter returns the articles matching c, in their original order. The
// result never shares its backing array with articles.
func Filter(articles []models.Article, c models.SearchCriteria) []models.Article {
	m := NewMatcher(c)
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if m.Match(a) {
			out = append(out, a)
		}
	}
	return out
}
