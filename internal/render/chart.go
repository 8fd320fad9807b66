// Package render turns a search result and its report into HTML,
// Markdown or plain-text documents, with inline SVG charts.
package render

import (
	"fmt"
	"math"
	"strings"

	"github.com/mctn/comtracker/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// SVG Chart Generator
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 400)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 60)
	MarginBottom int    // bottom margin (default: 50)
	MarginLeft   int    // left margin (default: 70)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	BarColor     string // bar fill (default: "#2563eb")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       400,
		MarginTop:    40,
		MarginRight:  60,
		MarginBottom: 50,
		MarginLeft:   70,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		BarColor:     "#2563eb",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

func withDefaults(cfg ChartConfig, title string) ChartConfig {
	if cfg.Width == 0 {
		t := cfg.Title
		cfg = DefaultChartConfig()
		cfg.Title = t
	}
	if cfg.Title == "" {
		cfg.Title = title
	}
	if cfg.BarColor == "" {
		cfg.BarColor = "#2563eb"
	}
	return cfg
}

// ════════════════════════════════════════════════════════════════════
// Column Chart (Vertical)
// ════════════════════════════════════════════════════════════════════

// BarItem represents a single bar.
type BarItem struct {
	Label string
	Value float64
	Color string // optional
}

// ColumnChart generates an SVG vertical bar chart. Labels are thinned out
// when there are too many columns to print them all.
func ColumnChart(items []BarItem, cfg ChartConfig) string {
	if len(items) == 0 {
		return emptySVG(cfg, "Aucune donnée")
	}
	cfg = withDefaults(cfg, "Évolution")

	px, py, pw, ph := cfg.plotArea()

	maxVal := 0.0
	for _, item := range items {
		maxVal = math.Max(maxVal, item.Value)
	}
	if maxVal <= 0 {
		maxVal = 1
	}
	top := niceCeil(maxVal)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Y-axis grid
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := top * float64(i) / float64(gridLines)
		y := py + ph - int(float64(ph)*float64(i)/float64(gridLines))
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, formatValue(val)))
	}

	slot := float64(pw) / float64(len(items))
	barW := slot * 0.7
	if barW > 40 {
		barW = 40
	}

	interval := len(items) / 12
	if interval < 1 {
		interval = 1
	}
	for i, item := range items {
		color := item.Color
		if color == "" {
			color = cfg.BarColor
		}
		cx := float64(px) + slot*float64(i) + slot/2
		bh := item.Value / top * float64(ph)
		sb.WriteString(fmt.Sprintf(`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"><title>%s: %s</title></rect>`,
			cx-barW/2, float64(py+ph)-bh, barW, bh, color, escapeXML(item.Label), formatValue(item.Value)))
		if i%interval == 0 {
			sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
				cx, py+ph+18, cfg.FontSize-1, cfg.TextColor, escapeXML(item.Label)))
		}
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Bar Chart (Horizontal)
// ════════════════════════════════════════════════════════════════════

// HorizontalBarChart generates an SVG horizontal bar chart, used for
// source rankings.
func HorizontalBarChart(items []BarItem, cfg ChartConfig) string {
	if len(items) == 0 {
		return emptySVG(cfg, "Aucune donnée")
	}
	cfg = withDefaults(cfg, "Classement")
	cfg.MarginLeft = 160 // wider for labels

	px, py, pw, ph := cfg.plotArea()

	maxVal := 0.0
	for _, item := range items {
		maxVal = math.Max(maxVal, item.Value)
	}
	if maxVal <= 0 {
		maxVal = 1
	}

	barH := float64(ph) / float64(len(items)) * 0.7
	if barH > 30 {
		barH = 30
	}
	gap := (float64(ph) - barH*float64(len(items))) / float64(len(items)+1)

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	for i, item := range items {
		by := float64(py) + gap + float64(i)*(barH+gap)
		color := item.Color
		if color == "" {
			color = cfg.BarColor
		}
		bw := item.Value / maxVal * float64(pw)

		sb.WriteString(fmt.Sprintf(`<rect x="%d" y="%.1f" width="%.1f" height="%.1f" fill="%s" rx="2"/>`,
			px, by, bw, barH, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, by+barH/2+4, cfg.FontSize, cfg.TextColor, escapeXML(truncate(item.Label, 24))))
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%.1f" font-size="%d" fill="%s">%s</text>`,
			float64(px)+bw+5, by+barH/2+4, cfg.FontSize, cfg.TextColor, formatValue(item.Value)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// ════════════════════════════════════════════════════════════════════
// Domain charts
// ════════════════════════════════════════════════════════════════════

// TimelineChart plots mentions per day.
func TimelineChart(timeline []models.DayCount) string {
	items := make([]BarItem, len(timeline))
	for i, d := range timeline {
		items[i] = BarItem{Label: d.Date, Value: float64(d.Count)}
	}
	cfg := DefaultChartConfig()
	cfg.Title = "Mentions par jour"
	return ColumnChart(items, cfg)
}

// YearChart plots mentions per year.
func YearChart(byYear []models.YearCount) string {
	items := make([]BarItem, len(byYear))
	for i, y := range byYear {
		items[i] = BarItem{Label: fmt.Sprintf("%d", y.Year), Value: float64(y.Count)}
	}
	cfg := DefaultChartConfig()
	cfg.Title = "Mentions par année"
	cfg.BarColor = "#16a34a"
	return ColumnChart(items, cfg)
}

// SourcesChart ranks sources by mentions.
func SourcesChart(title string, sources []models.SourceCount) string {
	items := make([]BarItem, len(sources))
	for i, s := range sources {
		items[i] = BarItem{Label: s.Name, Value: float64(s.Count)}
	}
	cfg := DefaultChartConfig()
	cfg.Title = title
	cfg.Height = 60 + 36*len(items)
	if cfg.Height < 200 {
		cfg.Height = 200
	}
	cfg.MarginBottom = 20
	return HorizontalBarChart(items, cfg)
}

// SentimentChart shows the positive/neutral/negative split.
func SentimentChart(s models.SentimentBreakdown) string {
	if s.Total() == 0 {
		return emptySVG(ChartConfig{Width: 400, Height: 160}, "Aucune donnée")
	}
	cfg := DefaultChartConfig()
	cfg.Title = "Sentiment"
	cfg.Height = 200
	cfg.MarginBottom = 20
	return HorizontalBarChart([]BarItem{
		{Label: "Positif", Value: float64(s.Positive), Color: "#16a34a"},
		{Label: "Neutre", Value: float64(s.Neutral), Color: "#9ca3af"},
		{Label: "Négatif", Value: float64(s.Negative), Color: "#dc2626"},
	}, cfg)
}

// ════════════════════════════════════════════════════════════════════
// Helpers
// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}

// niceCeil rounds v up to 1, 2 or 5 times a power of ten.
func niceCeil(v float64) float64 {
	if v <= 0 {
		return 1
	}
	exp := math.Pow(10, math.Floor(math.Log10(v)))
	for _, m := range []float64{1, 2, 5, 10} {
		if v <= m*exp {
			return m * exp
		}
	}
	return 10 * exp
}

func formatValue(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
