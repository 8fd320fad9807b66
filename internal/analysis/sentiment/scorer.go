package sentiment

import (
	"strings"

	"github.com/mctn/comtracker/pkg/models"
)

// ------------------------------------------------------------------
// Keyword-based sentiment scorer (offline, no LLM needed).
// Each keyword contained in the text moves the score by one; a keyword
// counts once per text however many times it appears.
// ------------------------------------------------------------------

// Label is the sentiment class of an article.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// positiveWords and negativeWords are matched as lowercase substrings,
// French and English mixed as the monitored press is.
var positiveWords = []string{
	"good", "great", "excellent", "positive", "success", "gain",
	"happy", "benefit", "favorable", "bien", "bon", "hausse",
}

var negativeWords = []string{
	"bad", "poor", "terrible", "negative", "loss", "fail",
	"down", "unfavorable", "mauvais", "baisse", "crise",
}

// Score returns the net keyword score of text: +1 for every positive
// keyword it contains, -1 for every negative one. Matching is a
// case-insensitive substring test, so "unfavorable" also hits "favorable".
func Score(text string) int {
	lower := strings.ToLower(text)

	score := 0
	for _, w := range positiveWords {
		if strings.Contains(lower, w) {
			score++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lower, w) {
			score--
		}
	}
	return score
}

// Classify maps a score to its label.
func Classify(score int) Label {
	switch {
	case score > 0:
		return Positive
	case score < 0:
		return Negative
	default:
		return Neutral
	}
}

// ScoreArticle classifies an article from its title and description.
func ScoreArticle(a models.Article) Label {
	return Classify(Score(a.Text()))
}

// Tally classifies every article and counts the classes.
func Tally(articles []models.Article) models.SentimentBreakdown {
	var b models.SentimentBreakdown
	for _, a := range articles {
		switch ScoreArticle(a) {
		case Positive:
			b.Positive++
		case Negative:
			b.Negative++
		default:
			b.Neutral++
		}
	}
	return b
}
