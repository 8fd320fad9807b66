package render

import (
	"strings"
	"testing"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/mctn/comtracker/internal/analysis/stats"
	"github.com/mctn/comtracker/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Test Helpers
// ════════════════════════════════════════════════════════════════════

func sampleArticles() []models.Article {
	return []models.Article{
		{Title: "Sonko en visite à Thiès", URL: "https://www.seneweb.com/a", Date: "2024-01-02T10:00:00Z", Service: "RSS"},
		{Title: "Débat <b>animé</b> | échanges", Date: "2024-01-02T18:30:00Z", Service: "Twitter"},
		{Title: "Un succès", Date: "2023-12-01", Service: "Reddit"},
		{Title: "Sans date", Date: "hier", Service: "RSS"},
	}
}

func sampleInput(rep *models.Report) Input {
	arts := sampleArticles()
	return Input{
		Service:     "all",
		Criteria:    models.SearchCriteria{Query: "sonko", Country: "sn"},
		Articles:    arts,
		Stats:       stats.Compute(arts),
		Insights:    stats.Insights(arts),
		Failures:    []string{"API YouTube indisponible"},
		Report:      rep,
		Elapsed:     1200 * time.Millisecond,
		GeneratedAt: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
	}
}

// ════════════════════════════════════════════════════════════════════
// Charts
// ════════════════════════════════════════════════════════════════════

func TestColumnChart(t *testing.T) {
	svg := ColumnChart([]BarItem{{Label: "2023", Value: 3}, {Label: "2024", Value: 7}}, ChartConfig{Title: "Par an"})
	if !strings.HasPrefix(svg, "<svg") || !strings.HasSuffix(svg, "</svg>") {
		t.Fatalf("not an svg document: %.60s", svg)
	}
	if strings.Count(svg, "<rect") != 3 { // background + 2 bars
		t.Errorf("expected 3 rects, got %d", strings.Count(svg, "<rect"))
	}
	if !strings.Contains(svg, "Par an") || !strings.Contains(svg, ">2024<") {
		t.Error("missing title or label")
	}
}

func TestChartsEmpty(t *testing.T) {
	for name, svg := range map[string]string{
		"timeline":  TimelineChart(nil),
		"years":     YearChart(nil),
		"sources":   SourcesChart("x", nil),
		"sentiment": SentimentChart(models.SentimentBreakdown{}),
	} {
		if !strings.Contains(svg, "Aucune donnée") {
			t.Errorf("%s: expected placeholder, got %.80s", name, svg)
		}
	}
}

func TestHorizontalBarChartEscapesLabels(t *testing.T) {
	svg := SourcesChart("Sources", []models.SourceCount{{Name: `A&B <"x">`, Count: 2}})
	if strings.Contains(svg, `<"x">`) {
		t.Error("label not escaped")
	}
	if !strings.Contains(svg, "A&amp;B &lt;&quot;x&quot;&gt;") {
		t.Errorf("escaped label missing: %s", svg)
	}
}

func TestNiceCeil(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 1}, {1, 1}, {3, 5}, {7, 10}, {12, 20}, {250, 500},
	}
	for _, tt := range tests {
		if got := niceCeil(tt.in); got != tt.want {
			t.Errorf("niceCeil(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Documents
// ════════════════════════════════════════════════════════════════════

func TestHTMLWithText(t *testing.T) {
	out, err := HTML(sampleInput(&models.Report{Kind: models.ReportText, Text: "Résumé <script>"}))
	if err != nil {
		t.Fatalf("HTML: %v", err)
	}
	for _, want := range []string{
		"Rapport de veille : sonko",
		"Requête : sonko",
		"Résumé &lt;script&gt;",
		"API YouTube indisponible",
		"Mentions par jour",
		`href="https://www.seneweb.com/a"`,
		"03/01/2024 09:00 UTC",
		"1.2s",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
	if strings.Contains(out, "&lt;svg") {
		t.Error("charts must not be escaped")
	}
}

func TestHTMLFallbackNotice(t *testing.T) {
	out, err := HTML(sampleInput(&models.Report{Kind: models.ReportStats, Error: "HTTP 500"}))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "seules les statistiques") || !strings.Contains(out, "HTTP 500") {
		t.Error("fallback notice missing")
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleInput(&models.Report{Kind: models.ReportText, Text: "Analyse.\n"}))
	for _, want := range []string{
		"# Rapport de veille : sonko",
		"## Rapport\n\nAnalyse.\n",
		"## Principales sources",
		"[Sonko en visite à Thiès](https://www.seneweb.com/a)",
		`Débat <b>animé</b> \| échanges`,
		"| 2024 ",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q\n%s", want, md)
		}
	}
}

func TestMarkdownTableAlignsDisplayWidth(t *testing.T) {
	lines := MarkdownTable([]string{"Nom", "N"}, [][]string{{"Thiès", "1"}, {"日本", "22"}})
	if len(lines) != 4 {
		t.Fatalf("lines = %q", lines)
	}
	want := runewidth.StringWidth(lines[0])
	for _, l := range lines {
		if runewidth.StringWidth(l) != want {
			t.Errorf("misaligned line %q", l)
		}
	}
	if lines[1] != "| ----- | --- |" {
		t.Errorf("separator = %q", lines[1])
	}
}

func TestText(t *testing.T) {
	out := Text(sampleInput(nil))
	if !strings.Contains(out, "Mentions: 4") || !strings.Contains(out, "PRINCIPALES SOURCES") {
		t.Errorf("unexpected text:\n%s", out)
	}
	if strings.Contains(out, "RAPPORT\n") {
		t.Error("no report section expected without a report")
	}
}

func TestArticleTable(t *testing.T) {
	arts := []models.Article{{Title: strings.Repeat("très long titre ", 20), Date: "2024-01-02T10:00:00Z", Service: "RSS"}}
	out := ArticleTable(arts, 80)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %q", lines)
	}
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > 80 {
			t.Errorf("line wider than 80 columns (%d): %q", w, l)
		}
	}
	if !strings.HasPrefix(lines[2], "2024-01-02 10:00") {
		t.Errorf("date not normalized: %q", lines[2])
	}
}

func TestRowsKeepsUnparseableDates(t *testing.T) {
	rows := Rows([]models.Article{{Title: " x ", Date: "hier", URL: "https://example.org/p"}})
	if rows[0].Date != "hier" || rows[0].Title != "x" || rows[0].Source != "example.org" {
		t.Errorf("row = %+v", rows[0])
	}
}

func TestScope(t *testing.T) {
	got := Scope("", models.SearchCriteria{Query: "q", Start: "2024-01-01"})
	want := "Service : all · Requête : q · Du 2024-01-01 au …"
	if got != want {
		t.Errorf("Scope = %q, want %q", got, want)
	}
}
