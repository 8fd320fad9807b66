package report

import (
	"fmt"
	"strings"

	"github.com/mctn/comtracker/pkg/models"
)

// DefaultArticleLimit is the number of articles quoted in the prompt.
const DefaultArticleLimit = 20

// DefaultSystemPrompt pins the answer language.
const DefaultSystemPrompt = "Réponds en français."

const analystInstructions = "Tu es un analyste médias. En t'inspirant du style des rapports Brand24, " +
	"rédige en français un compte rendu structuré des articles suivants avec les sections " +
	"'Résumé', 'Tendances', 'Points saillants' et 'Recommandation'. " +
	"Indique également un sentiment global (positif, neutre ou négatif). " +
	"Réponds STRICTEMENT en JSON avec les clés 'summary' et 'sentiment'. " +
	"La clé 'summary' doit contenir le rapport en Markdown avec paragraphes ou listes à puces si nécessaire."

const answerFormat = "JSON:\n\nRespond ONLY in JSON with keys 'summary' and 'sentiment'.\nJSON:"

// BuildPrompt assembles the analyst prompt from the first limit articles
// and the statistics block. limit <= 0 means DefaultArticleLimit.
func BuildPrompt(articles []models.Article, stats models.AggregateStats, limit int) string {
	if limit <= 0 {
		limit = DefaultArticleLimit
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}

	var b strings.Builder
	b.WriteString(analystInstructions)
	if block := StatsBlock(stats); block != "" {
		b.WriteString("\n\n")
		b.WriteString(block)
	}
	b.WriteString("\n\n")
	for i, a := range articles {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s – %s", a.Title, a.Description)
	}
	b.WriteString("\n\n")
	b.WriteString(answerFormat)
	return b.String()
}

// StatsBlock renders the statistics as prompt lines. Empty sections are
// left out.
func StatsBlock(stats models.AggregateStats) string {
	lines := []string{fmt.Sprintf("Total mentions: %d", stats.TotalMentions)}

	if len(stats.TopSources) > 0 {
		parts := make([]string, len(stats.TopSources))
		for i, s := range stats.TopSources {
			parts[i] = fmt.Sprintf("%s (%d)", s.Name, s.Count)
		}
		lines = append(lines, "Top sources: "+strings.Join(parts, ", "))
	}
	if len(stats.Timeline) > 0 {
		parts := make([]string, len(stats.Timeline))
		for i, d := range stats.Timeline {
			parts[i] = fmt.Sprintf("%s: %d", d.Date, d.Count)
		}
		lines = append(lines, "Timeline: "+strings.Join(parts, ", "))
	}
	s := stats.Sentiment
	lines = append(lines, fmt.Sprintf("Sentiment distribution: positive: %d, negative: %d, neutral: %d",
		s.Positive, s.Negative, s.Neutral))

	return strings.Join(lines, "\n")
}
