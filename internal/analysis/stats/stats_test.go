package stats

import (
	"fmt"
	"testing"

	"github.com/mctn/comtracker/pkg/models"
)

func TestComputeTwoRedditDays(t *testing.T) {
	arts := []models.Article{
		{Title: "a", Date: "2024-01-01", Service: "Reddit"},
		{Title: "b", Date: "2024-01-02", Service: "Reddit"},
	}
	s := Compute(arts)

	if s.TotalMentions != 2 {
		t.Errorf("TotalMentions = %d, want 2", s.TotalMentions)
	}
	if len(s.TopSources) != 1 || s.TopSources[0] != (models.SourceCount{Name: "Reddit", Count: 2}) {
		t.Errorf("TopSources = %+v", s.TopSources)
	}
	want := []models.DayCount{{Date: "2024-01-01", Count: 1}, {Date: "2024-01-02", Count: 1}}
	if len(s.Timeline) != len(want) {
		t.Fatalf("Timeline = %+v", s.Timeline)
	}
	for i := range want {
		if s.Timeline[i] != want[i] {
			t.Errorf("Timeline[%d] = %+v, want %+v", i, s.Timeline[i], want[i])
		}
	}
}

func TestComputeEmpty(t *testing.T) {
	s := Compute(nil)
	if s.TotalMentions != 0 || len(s.TopSources) != 0 || len(s.Timeline) != 0 {
		t.Errorf("unexpected stats for empty input: %+v", s)
	}
	if s.Sentiment.Total() != 0 {
		t.Errorf("sentiment total = %d", s.Sentiment.Total())
	}
	// Encoded for the report service, empty lists must be [] not null.
	if s.TopSources == nil || s.Timeline == nil {
		t.Error("expected non-nil slices")
	}
}

func TestSourceKeyResolution(t *testing.T) {
	tests := []struct {
		name string
		a    models.Article
		want string
	}{
		{"service wins", models.Article{Service: "RSS", URL: "https://lemonde.fr/x"}, "RSS"},
		{"url host", models.Article{URL: "https://www.seneweb.com/news/1"}, "www.seneweb.com"},
		{"host with port", models.Article{URL: "http://localhost:5002/a"}, "localhost:5002"},
		{"invalid url", models.Article{URL: "::not a url"}, models.UnknownSource},
		{"relative url", models.Article{URL: "/news/1"}, models.UnknownSource},
		{"nothing", models.Article{}, models.UnknownSource},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SourceKey(tt.a); got != tt.want {
				t.Errorf("SourceKey = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestComputeTopSourcesLimitAndOrder(t *testing.T) {
	var arts []models.Article
	add := func(src string, n int) {
		for i := 0; i < n; i++ {
			arts = append(arts, models.Article{Service: src, Date: "2024-02-01"})
		}
	}
	add("A", 1)
	add("B", 3)
	add("C", 1)
	add("D", 2)
	add("E", 1)
	add("F", 1)
	add("G", 4)

	s := Compute(arts)
	if len(s.TopSources) != TopSourcesLimit {
		t.Fatalf("len(TopSources) = %d, want %d", len(s.TopSources), TopSourcesLimit)
	}
	want := []string{"G", "B", "D", "A", "C"}
	for i, name := range want {
		if s.TopSources[i].Name != name {
			t.Errorf("TopSources[%d] = %s, want %s (%+v)", i, s.TopSources[i].Name, name, s.TopSources)
		}
	}
	for i := 1; i < len(s.TopSources); i++ {
		if s.TopSources[i].Count > s.TopSources[i-1].Count {
			t.Errorf("TopSources not sorted descending: %+v", s.TopSources)
		}
	}
}

func TestComputeInvalidDatesSkippedFromTimeline(t *testing.T) {
	arts := []models.Article{
		{Title: "ok", Date: "2024-03-02T10:00:00Z"},
		{Title: "bad", Date: "yesterday"},
		{Title: "missing"},
		{Title: "ok2", Date: "2024-03-01"},
	}
	s := Compute(arts)
	if s.TotalMentions != 4 {
		t.Errorf("TotalMentions = %d, want 4", s.TotalMentions)
	}
	if len(s.Timeline) != 2 || s.Timeline[0].Date != "2024-03-01" || s.Timeline[1].Date != "2024-03-02" {
		t.Errorf("Timeline = %+v", s.Timeline)
	}
	if s.Sentiment.Total() != 4 {
		t.Errorf("sentiment total = %d, want 4", s.Sentiment.Total())
	}
}

func TestComputeProperties(t *testing.T) {
	days := []string{"2024-05-03", "2024-05-01", "2024-05-02", "2023-12-31T23:59:59Z"}
	words := []string{"great", "fail", "meeting", "hausse crise bon"}
	sources := []string{"Reddit", "RSS", "", "Twitter", "YouTube", "LinkedIn", "Other"}

	var arts []models.Article
	for i := 0; i < 40; i++ {
		arts = append(arts, models.Article{
			Title:   words[i%len(words)],
			Date:    days[i%len(days)],
			Service: sources[i%len(sources)],
			URL:     fmt.Sprintf("https://site%d.example/a", i%3),
		})
	}

	s := Compute(arts)
	if s.Sentiment.Total() != len(arts) {
		t.Errorf("sentiment sum = %d, want %d", s.Sentiment.Total(), len(arts))
	}
	if len(s.TopSources) > TopSourcesLimit {
		t.Errorf("TopSources too long: %d", len(s.TopSources))
	}
	sum := 0
	for i, d := range s.Timeline {
		sum += d.Count
		if i > 0 && s.Timeline[i-1].Date >= d.Date {
			t.Errorf("timeline not ascending at %d: %+v", i, s.Timeline)
		}
	}
	if sum != s.TotalMentions {
		t.Errorf("timeline sum = %d, want %d", sum, s.TotalMentions)
	}
}

func TestDomains(t *testing.T) {
	arts := []models.Article{
		{URL: "https://a.example/1"},
		{URL: "https://b.example/1"},
		{URL: "https://a.example/2"},
		{URL: "bogus"},
		{},
	}
	got := Domains(arts, 0)
	if len(got) != 2 || got[0] != (models.SourceCount{Name: "a.example", Count: 2}) {
		t.Errorf("Domains = %+v", got)
	}
	if got := Domains(arts, 1); len(got) != 1 {
		t.Errorf("Domains limit ignored: %+v", got)
	}
}

func TestInsights(t *testing.T) {
	arts := []models.Article{
		{Service: "RSS", Date: "2023-06-01"},
		{Service: "RSS", Date: "2025-01-10"},
		{Service: "Reddit", Date: "2024-02-02"},
		{Service: "Reddit", Date: "2024-08-15"},
		{Service: "Twitter", Date: "garbage"},
	}
	ins := Insights(arts)

	if ins.Total != 5 {
		t.Errorf("Total = %d", ins.Total)
	}
	wantYears := []models.YearCount{{Year: 2023, Count: 1}, {Year: 2024, Count: 2}, {Year: 2025, Count: 1}}
	if len(ins.ByYear) != len(wantYears) {
		t.Fatalf("ByYear = %+v", ins.ByYear)
	}
	for i := range wantYears {
		if ins.ByYear[i] != wantYears[i] {
			t.Errorf("ByYear[%d] = %+v, want %+v", i, ins.ByYear[i], wantYears[i])
		}
	}
	if ins.UniqueSources != 3 {
		t.Errorf("UniqueSources = %d", ins.UniqueSources)
	}
	if ins.YearsSpan() != "2023 – 2025" {
		t.Errorf("YearsSpan = %q", ins.YearsSpan())
	}
	if ins.AveragePerYear < 1.66 || ins.AveragePerYear > 1.67 {
		t.Errorf("AveragePerYear = %f", ins.AveragePerYear)
	}
}

func TestInsightsNoDates(t *testing.T) {
	ins := Insights([]models.Article{{Title: "x"}})
	if ins.YearsSpan() != "n/a" {
		t.Errorf("YearsSpan = %q", ins.YearsSpan())
	}
	if ins.AveragePerYear != 0 {
		t.Errorf("AveragePerYear = %f", ins.AveragePerYear)
	}
	if len(ins.TopSources) != 1 || ins.TopSources[0].Name != models.UnknownSource {
		t.Errorf("TopSources = %+v", ins.TopSources)
	}
}
