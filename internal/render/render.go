package render

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/mctn/comtracker/internal/analysis/stats"
	"github.com/mctn/comtracker/pkg/models"
	"github.com/mctn/comtracker/pkg/utils"
)

// DomainsLimit is the number of hosts charted in the domains ranking.
const DomainsLimit = 10

// Input is everything a rendered document shows.
type Input struct {
	Title       string
	Service     string
	Criteria    models.SearchCriteria
	Articles    []models.Article
	Stats       models.AggregateStats
	Insights    models.Insights
	Failures    []string // user-facing messages of failed sources
	Report      *models.Report
	Elapsed     time.Duration
	GeneratedAt time.Time
}

// ArticleRow is an article as shown in tables.
type ArticleRow struct {
	Date   string
	Source string
	Title  string
	URL    string
}

// templateData is passed to ReportTemplate. Charts are trusted SVG.
type templateData struct {
	Title          string
	Scope          string
	GeneratedAt    string
	Elapsed        string
	Period         string
	AveragePerYear string
	Stats          models.AggregateStats
	Insights       models.Insights
	Failures       []string
	ReportText     string
	ReportNotice   string
	Articles       []ArticleRow

	TimelineChart  template.HTML
	YearChart      template.HTML
	SourcesChart   template.HTML
	DomainsChart   template.HTML
	SentimentChart template.HTML
}

var reportTmpl = template.Must(template.New("report").Parse(ReportTemplate))

// HTML renders a standalone HTML document with inline SVG charts.
func HTML(in Input) (string, error) {
	in = withInputDefaults(in)

	data := templateData{
		Title:          in.Title,
		Scope:          Scope(in.Service, in.Criteria),
		GeneratedAt:    timestamp(in.GeneratedAt),
		Period:         in.Insights.YearsSpan(),
		AveragePerYear: fmt.Sprintf("%.1f", in.Insights.AveragePerYear),
		Stats:          in.Stats,
		Insights:       in.Insights,
		Failures:       in.Failures,
		Articles:       Rows(in.Articles),
		TimelineChart:  template.HTML(TimelineChart(in.Stats.Timeline)),
		YearChart:      template.HTML(YearChart(in.Insights.ByYear)),
		SourcesChart:   template.HTML(SourcesChart("Principales sources", in.Stats.TopSources)),
		DomainsChart:   template.HTML(SourcesChart("Principaux domaines", stats.Domains(in.Articles, DomainsLimit))),
		SentimentChart: template.HTML(SentimentChart(in.Stats.Sentiment)),
	}
	if in.Elapsed > 0 {
		data.Elapsed = utils.FormatDuration(in.Elapsed)
	}
	data.ReportText, data.ReportNotice = reportBody(in.Report)

	var buf bytes.Buffer
	if err := reportTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}

// Markdown renders the report, statistics and article list as Markdown.
func Markdown(in Input) string {
	in = withInputDefaults(in)

	var sb strings.Builder
	sb.WriteString("# " + in.Title + "\n\n")
	sb.WriteString("_" + Scope(in.Service, in.Criteria) + " · " + timestamp(in.GeneratedAt) + "_\n\n")

	if len(in.Failures) > 0 {
		sb.WriteString("> **Sources indisponibles :** " + strings.Join(in.Failures, " ; ") + "\n\n")
	}

	sb.WriteString("## Rapport\n\n")
	text, notice := reportBody(in.Report)
	if text != "" {
		sb.WriteString(strings.TrimSpace(text) + "\n\n")
	} else {
		sb.WriteString("> " + notice + "\n\n")
	}

	sb.WriteString("## Indicateurs\n\n")
	writeLines(&sb, MarkdownTable([]string{"Indicateur", "Valeur"}, [][]string{
		{"Mentions", fmt.Sprint(in.Stats.TotalMentions)},
		{"Sources uniques", fmt.Sprint(in.Insights.UniqueSources)},
		{"Période", in.Insights.YearsSpan()},
		{"Moyenne par an", fmt.Sprintf("%.1f", in.Insights.AveragePerYear)},
		{"Positif", fmt.Sprint(in.Stats.Sentiment.Positive)},
		{"Neutre", fmt.Sprint(in.Stats.Sentiment.Neutral)},
		{"Négatif", fmt.Sprint(in.Stats.Sentiment.Negative)},
	}))

	if len(in.Stats.TopSources) > 0 {
		sb.WriteString("\n## Principales sources\n\n")
		writeLines(&sb, MarkdownTable([]string{"Source", "Mentions"}, countRows(in.Stats.TopSources)))
	}
	if len(in.Stats.Timeline) > 0 {
		sb.WriteString("\n## Mentions par jour\n\n")
		rows := make([][]string, len(in.Stats.Timeline))
		for i, d := range in.Stats.Timeline {
			rows[i] = []string{d.Date, fmt.Sprint(d.Count)}
		}
		writeLines(&sb, MarkdownTable([]string{"Date", "Mentions"}, rows))
	}
	if len(in.Insights.ByYear) > 0 {
		sb.WriteString("\n## Mentions par année\n\n")
		rows := make([][]string, len(in.Insights.ByYear))
		for i, y := range in.Insights.ByYear {
			rows[i] = []string{fmt.Sprint(y.Year), fmt.Sprint(y.Count)}
		}
		writeLines(&sb, MarkdownTable([]string{"Année", "Mentions"}, rows))
	}

	if len(in.Articles) > 0 {
		sb.WriteString(fmt.Sprintf("\n## Articles (%d)\n\n", len(in.Articles)))
		rows := make([][]string, 0, len(in.Articles))
		for _, r := range Rows(in.Articles) {
			title := r.Title
			if r.URL != "" {
				title = "[" + title + "](" + r.URL + ")"
			}
			rows = append(rows, []string{r.Date, r.Source, title})
		}
		writeLines(&sb, MarkdownTable([]string{"Date", "Source", "Titre"}, rows))
	}
	return sb.String()
}

// Text renders a terminal-friendly summary: stats, sources and the report.
func Text(in Input) string {
	in = withInputDefaults(in)
	line := strings.Repeat("═", 60)
	thinLine := strings.Repeat("─", 60)

	var sb strings.Builder
	sb.WriteString("\n" + line + "\n")
	sb.WriteString(fmt.Sprintf("  %s\n", in.Title))
	sb.WriteString(fmt.Sprintf("  %s | %s\n", Scope(in.Service, in.Criteria), timestamp(in.GeneratedAt)))
	sb.WriteString(line + "\n\n")

	s := in.Stats
	sb.WriteString(fmt.Sprintf("  Mentions: %d | Sources uniques: %d | Période: %s\n",
		s.TotalMentions, in.Insights.UniqueSources, in.Insights.YearsSpan()))
	sb.WriteString(fmt.Sprintf("  Sentiment: +%d / =%d / -%d\n",
		s.Sentiment.Positive, s.Sentiment.Neutral, s.Sentiment.Negative))
	sb.WriteString(thinLine + "\n")

	if len(s.TopSources) > 0 {
		sb.WriteString("\n  ■ PRINCIPALES SOURCES\n")
		for _, c := range s.TopSources {
			sb.WriteString(fmt.Sprintf("    %s %d\n", runewidth.FillRight(truncate(c.Name, 30), 30), c.Count))
		}
		sb.WriteString(thinLine + "\n")
	}

	if len(in.Failures) > 0 {
		sb.WriteString("\n  ■ SOURCES INDISPONIBLES\n")
		for _, f := range in.Failures {
			sb.WriteString("    " + f + "\n")
		}
		sb.WriteString(thinLine + "\n")
	}

	if in.Report != nil {
		sb.WriteString("\n  ■ RAPPORT\n")
		text, notice := reportBody(in.Report)
		if text == "" {
			text = notice
		}
		sb.WriteString(strings.TrimSpace(text) + "\n")
	}
	sb.WriteString(line + "\n")
	return sb.String()
}

// ArticleTable lays out articles as a fixed-width text table. Titles are
// cut to fit width display columns.
func ArticleTable(articles []models.Article, width int) string {
	if width <= 0 {
		width = 120
	}
	const dateW, sourceW = 16, 18
	titleW := width - dateW - sourceW - 4
	if titleW < 20 {
		titleW = 20
	}

	var sb strings.Builder
	writeRow := func(date, source, title string) {
		sb.WriteString(runewidth.FillRight(runewidth.Truncate(date, dateW, ""), dateW))
		sb.WriteString("  ")
		sb.WriteString(runewidth.FillRight(runewidth.Truncate(source, sourceW, "…"), sourceW))
		sb.WriteString("  ")
		sb.WriteString(runewidth.Truncate(title, titleW, "…"))
		sb.WriteString("\n")
	}
	writeRow("DATE", "SOURCE", "TITRE")
	sb.WriteString(strings.Repeat("─", dateW+sourceW+titleW+4) + "\n")
	for _, r := range Rows(articles) {
		writeRow(r.Date, r.Source, r.Title)
	}
	return sb.String()
}

// MarkdownTable renders a Markdown table whose columns are padded to the
// display width of their widest cell.
func MarkdownTable(headers []string, rows [][]string) []string {
	table := make([][]string, 0, len(rows)+1)
	table = append(table, headers)
	for _, r := range rows {
		cells := make([]string, len(headers))
		for i := range cells {
			if i < len(r) {
				cells[i] = escapeCell(r[i])
			}
		}
		table = append(table, cells)
	}

	widths := make([]int, len(headers))
	for _, row := range table {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	for i := range widths {
		if widths[i] < 3 {
			widths[i] = 3
		}
	}

	out := make([]string, 0, len(table)+1)
	for i, row := range table {
		out = append(out, tableLine(row, widths))
		if i == 0 {
			sep := make([]string, len(widths))
			for j, w := range widths {
				sep[j] = strings.Repeat("-", w)
			}
			out = append(out, tableLine(sep, widths))
		}
	}
	return out
}

func tableLine(cells []string, widths []int) string {
	var sb strings.Builder
	sb.WriteString("|")
	for i, cell := range cells {
		sb.WriteString(" ")
		sb.WriteString(runewidth.FillRight(cell, widths[i]))
		sb.WriteString(" |")
	}
	return sb.String()
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}

func writeLines(sb *strings.Builder, lines []string) {
	for _, l := range lines {
		sb.WriteString(l + "\n")
	}
}

// Rows converts articles for display: dates are normalized to
// "YYYY-MM-DD HH:MM" UTC when parseable and the source is resolved as
// in the statistics.
func Rows(articles []models.Article) []ArticleRow {
	rows := make([]ArticleRow, len(articles))
	for i, a := range articles {
		date := a.Date
		if t, ok := utils.ParseTimestamp(a.Date); ok {
			date = t.Format("2006-01-02 15:04")
		}
		rows[i] = ArticleRow{Date: date, Source: stats.SourceKey(a), Title: strings.TrimSpace(a.Title), URL: a.URL}
	}
	return rows
}

// Scope describes the search that produced a document.
func Scope(service string, c models.SearchCriteria) string {
	if service == "" {
		service = "all"
	}
	parts := []string{"Service : " + service}
	if c.Query != "" {
		parts = append(parts, "Requête : "+c.Query)
	}
	if c.Exclude != "" {
		parts = append(parts, "Exclus : "+c.Exclude)
	}
	if c.Country != "" {
		parts = append(parts, "Pays : "+c.Country)
	}
	if c.Lang != "" {
		parts = append(parts, "Langue : "+c.Lang)
	}
	if c.Start != "" || c.End != "" {
		parts = append(parts, "Du "+orDash(c.Start)+" au "+orDash(c.End))
	}
	return strings.Join(parts, " · ")
}

func reportBody(r *models.Report) (text, notice string) {
	switch {
	case r == nil:
		return "", "Rapport IA non demandé."
	case r.Kind == models.ReportText && strings.TrimSpace(r.Text) != "":
		return r.Text, ""
	case r.Kind == models.ReportText:
		return "", "Le service IA n'a renvoyé aucun texte."
	default:
		notice = "Rapport IA indisponible, seules les statistiques sont présentées."
		if r.Error != "" {
			notice += " (" + r.Error + ")"
		}
		return "", notice
	}
}

func countRows(counts []models.SourceCount) [][]string {
	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.Name, fmt.Sprint(c.Count)}
	}
	return rows
}

func withInputDefaults(in Input) Input {
	if in.Title == "" {
		in.Title = "Rapport de veille"
		if in.Criteria.Query != "" {
			in.Title += " : " + in.Criteria.Query
		}
	}
	if in.GeneratedAt.IsZero() {
		in.GeneratedAt = time.Now()
	}
	return in
}

func timestamp(t time.Time) string {
	return t.UTC().Format("02/01/2006 15:04 UTC")
}

func orDash(s string) string {
	if s == "" {
		return "…"
	}
	return s
}
