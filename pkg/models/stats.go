package models

import "time"

// UnknownSource is the source key used when an article has neither a
// service label nor a parseable URL host.
const UnknownSource = "Inconnu"

// SourceCount is the number of articles attributed to one source.
type SourceCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// DayCount is the number of articles published on one calendar day.
type DayCount struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Count int    `json:"count"`
}

// YearCount is the number of articles published in one year.
type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// SentimentBreakdown counts articles per sentiment class.
type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Neutral  int `json:"neutral"`
}

// Total returns the number of classified articles.
func (s SentimentBreakdown) Total() int {
	return s.Positive + s.Negative + s.Neutral
}

// AggregateStats is the summary derived from a filtered article set.
// The JSON layout is the one the AI report service expects.
type AggregateStats struct {
	TotalMentions int                `json:"totalMentions"`
	TopSources    []SourceCount      `json:"topSources"`
	Timeline      []DayCount         `json:"timeline"`
	Sentiment     SentimentBreakdown `json:"sentiment"`
}

// Insights holds the longer-range metrics shown on the report tab.
type Insights struct {
	Total          int           `json:"total"`
	ByYear         []YearCount   `json:"byYear"`
	TopSources     []SourceCount `json:"topSources"`
	UniqueSources  int           `json:"uniqueSources"`
	FirstDate      *time.Time    `json:"firstDate,omitempty"`
	LastDate       *time.Time    `json:"lastDate,omitempty"`
	AveragePerYear float64       `json:"averagePerYear"`
}

// YearsSpan renders the covered period, e.g. "2023 – 2025", or "n/a".
func (i Insights) YearsSpan() string {
	if i.FirstDate == nil || i.LastDate == nil {
		return "n/a"
	}
	return i.FirstDate.Format("2006") + " – " + i.LastDate.Format("2006")
}
