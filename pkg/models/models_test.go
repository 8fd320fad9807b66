package models

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

// ── Article Tests ──

func TestArticleWireFormat(t *testing.T) {
	raw := `{"title":"Sonatel","description":"Résultats","url":"https://a.sn/x","date":"2024-03-01T10:00:00Z","service":"Presse","country":"sn","langue":"fr"}`
	var a Article
	if err := json.Unmarshal([]byte(raw), &a); err != nil {
		t.Fatalf("json.Unmarshal(Article) error: %v", err)
	}
	if a.Langue != "fr" {
		t.Errorf("Langue: got %q, want %q", a.Langue, "fr")
	}
	if a.Country != "sn" {
		t.Errorf("Country: got %q, want %q", a.Country, "sn")
	}

	data, err := json.Marshal(Article{Title: "t", Date: "d"})
	if err != nil {
		t.Fatalf("json.Marshal(Article) error: %v", err)
	}
	if strings.Contains(string(data), "langue") || strings.Contains(string(data), "url") {
		t.Errorf("empty optional fields should be omitted: %s", data)
	}
}

func TestArticleDateTypes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `{"date":"2024-03-01"}`, "2024-03-01"},
		{"epoch millis", `{"date":1704067200000}`, "2024-01-01T00:00:00Z"},
		{"negative millis", `{"date":-1000}`, "1969-12-31T23:59:59Z"},
		{"out of range", `{"date":1e20}`, "1e20"},
		{"null", `{"date":null}`, ""},
		{"bool", `{"date":true}`, ""},
		{"missing", `{"title":"x"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Article
			if err := json.Unmarshal([]byte(tt.raw), &a); err != nil {
				t.Fatalf("json.Unmarshal(Article) error: %v", err)
			}
			if a.Date != tt.want {
				t.Errorf("Date: got %q, want %q", a.Date, tt.want)
			}
		})
	}

	var a Article
	if err := json.Unmarshal([]byte(`{"title":"t","date":5,"langue":"fr"}`), &a); err != nil {
		t.Fatalf("json.Unmarshal(Article) error: %v", err)
	}
	if a.Title != "t" || a.Langue != "fr" {
		t.Errorf("other fields lost: %+v", a)
	}
	if err := json.Unmarshal([]byte(`{"title":1}`), &a); err == nil {
		t.Error("wrong-typed title should fail")
	}
}

func TestArticleText(t *testing.T) {
	a := Article{Title: "Orange Sénégal", Description: "nouvelle offre"}
	if got := a.Text(); got != "Orange Sénégal nouvelle offre" {
		t.Errorf("Text() = %q", got)
	}
}

func TestArticleWithService(t *testing.T) {
	a := Article{Title: "x", Service: "old"}
	b := a.WithService("Reddit")
	if b.Service != "Reddit" {
		t.Errorf("Service: got %q, want Reddit", b.Service)
	}
	if a.Service != "old" {
		t.Errorf("original should be unchanged, got %q", a.Service)
	}
}

// ── SearchCriteria Tests ──

func TestSearchCriteriaNormalize(t *testing.T) {
	c := SearchCriteria{
		Query:   "  free money ",
		Country: " SN",
		Lang:    "FR ",
		Start:   " 2024-01-01",
	}.Normalize()

	if c.Query != "free money" {
		t.Errorf("Query: got %q", c.Query)
	}
	if c.Country != "sn" || c.Lang != "fr" {
		t.Errorf("Country/Lang: got %q/%q, want sn/fr", c.Country, c.Lang)
	}
	if c.Start != "2024-01-01" {
		t.Errorf("Start: got %q", c.Start)
	}
}

func TestSearchCriteriaIsZero(t *testing.T) {
	if !(SearchCriteria{}).IsZero() {
		t.Error("empty criteria should be zero")
	}
	if (SearchCriteria{Lang: "fr"}).IsZero() {
		t.Error("criteria with lang should not be zero")
	}
}

// ── Stats Tests ──

func TestAggregateStatsJSONKeys(t *testing.T) {
	s := AggregateStats{
		TotalMentions: 2,
		TopSources:    []SourceCount{{Name: "Reddit", Count: 2}},
		Timeline:      []DayCount{{Date: "2024-01-01", Count: 2}},
		Sentiment:     SentimentBreakdown{Positive: 1, Neutral: 1},
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("json.Marshal(AggregateStats) error: %v", err)
	}
	for _, key := range []string{`"totalMentions":2`, `"topSources"`, `"timeline"`, `"positive":1`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("missing %s in %s", key, data)
		}
	}
	if got := s.Sentiment.Total(); got != 2 {
		t.Errorf("Sentiment.Total() = %d, want 2", got)
	}
}

func TestInsightsYearsSpan(t *testing.T) {
	if got := (Insights{}).YearsSpan(); got != "n/a" {
		t.Errorf("YearsSpan() without dates = %q, want n/a", got)
	}
	first := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	i := Insights{FirstDate: &first, LastDate: &last}
	if got := i.YearsSpan(); got != "2022 – 2024" {
		t.Errorf("YearsSpan() = %q, want 2022 – 2024", got)
	}
}

// ── Report Tests ──

func TestReportOmitsEmptyPayload(t *testing.T) {
	data, err := json.Marshal(Report{Kind: ReportText, Text: "ok"})
	if err != nil {
		t.Fatalf("json.Marshal(Report) error: %v", err)
	}
	if string(data) != `{"kind":"text","text":"ok"}` {
		t.Errorf("Report JSON = %s", data)
	}
}
