// Package stats derives summary metrics from a set of articles: mention
// totals, per-source and per-day counts, sentiment breakdown and the
// longer-range insights shown on the report tab.
package stats

import (
	"net/url"
	"sort"

	"github.com/mctn/comtracker/internal/analysis/sentiment"
	"github.com/mctn/comtracker/pkg/models"
	"github.com/mctn/comtracker/pkg/utils"
)

// TopSourcesLimit is the number of sources kept in AggregateStats.
const TopSourcesLimit = 5

// SourceKey resolves the source an article is attributed to: its service
// label, else the host of its URL, else models.UnknownSource.
func SourceKey(a models.Article) string {
	if a.Service != "" {
		return a.Service
	}
	if host := Host(a.URL); host != "" {
		return host
	}
	return models.UnknownSource
}

// Host returns the host (with port, if any) of raw, or "" when raw is not an
// absolute URL.
func Host(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Host
}

// Compute derives AggregateStats from articles. It never fails: articles
// whose date cannot be parsed are counted everywhere except the timeline.
func Compute(articles []models.Article) models.AggregateStats {
	sources := newCounter()
	days := newCounter()

	for _, a := range articles {
		sources.add(SourceKey(a))
		if t, ok := utils.ParseTimestamp(a.Date); ok {
			days.add(utils.DayKey(t))
		}
	}

	top := sources.ranked()
	if len(top) > TopSourcesLimit {
		top = top[:TopSourcesLimit]
	}

	timeline := make([]models.DayCount, 0, len(days.order))
	for _, day := range days.order {
		timeline = append(timeline, models.DayCount{Date: day, Count: days.counts[day]})
	}
	sort.Slice(timeline, func(i, j int) bool { return timeline[i].Date < timeline[j].Date })

	return models.AggregateStats{
		TotalMentions: len(articles),
		TopSources:    top,
		Timeline:      timeline,
		Sentiment:     sentiment.Tally(articles),
	}
}

// Domains counts articles per URL host, skipping articles without a usable
// URL, and returns at most limit entries (limit <= 0 means all).
func Domains(articles []models.Article, limit int) []models.SourceCount {
	hosts := newCounter()
	for _, a := range articles {
		if host := Host(a.URL); host != "" {
			hosts.add(host)
		}
	}
	ranked := hosts.ranked()
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// counter counts keys and remembers the order they were first seen in.
type counter struct {
	counts map[string]int
	order  []string
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(key string) {
	if _, ok := c.counts[key]; !ok {
		c.order = append(c.order, key)
	}
	c.counts[key]++
}

// ranked returns counts sorted descending; ties keep first-seen order.
func (c *counter) ranked() []models.SourceCount {
	out := make([]models.SourceCount, 0, len(c.order))
	for _, k := range c.order {
		out = append(out, models.SourceCount{Name: k, Count: c.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
