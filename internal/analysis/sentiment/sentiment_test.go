package sentiment

import (
	"strings"
	"testing"

	"github.com/mctn/comtracker/pkg/models"
)

func TestScorePositive(t *testing.T) {
	score := Score("Great success for the new policy")
	if score != 2 {
		t.Errorf("expected score 2, got %d", score)
	}
	if Classify(score) != Positive {
		t.Errorf("expected positive, got %s", Classify(score))
	}
}

func TestScoreNegative(t *testing.T) {
	score := Score("La crise s'aggrave, baisse des exportations")
	if score != -2 {
		t.Errorf("expected score -2, got %d", score)
	}
	if Classify(score) != Negative {
		t.Errorf("expected negative, got %s", Classify(score))
	}
}

func TestScoreMixedIsNeutral(t *testing.T) {
	a := models.Article{Title: "A great start", Description: "but the launch may fail"}
	if got := Score(a.Text()); got != 0 {
		t.Errorf("expected score 0, got %d", got)
	}
	if got := ScoreArticle(a); got != Neutral {
		t.Errorf("expected neutral, got %s", got)
	}
}

func TestScoreNoKeywords(t *testing.T) {
	if got := Score("Le conseil des ministres s'est tenu mercredi"); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
}

func TestScoreSubstringHits(t *testing.T) {
	// "unfavorable" contains "favorable"; both lists fire.
	if got := Score("unfavorable"); got != 0 {
		t.Errorf("expected unfavorable to net 0, got %d", got)
	}
	// "bonjour" contains "bon".
	if got := Score("Bonjour"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestScoreRepeatedKeywordCountsOnce(t *testing.T) {
	if got := Score("good good good"); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

func TestTallySumsToLength(t *testing.T) {
	articles := []models.Article{
		{Title: "great news"},
		{Title: "terrible loss"},
		{Title: "weather report"},
		{Title: "gain", Description: "down"},
		{},
	}
	b := Tally(articles)
	if b.Total() != len(articles) {
		t.Fatalf("tally total %d, want %d", b.Total(), len(articles))
	}
	if b.Positive != 1 || b.Negative != 1 || b.Neutral != 3 {
		t.Errorf("unexpected breakdown %+v", b)
	}
}

func TestWordLists(t *testing.T) {
	if len(positiveWords) != 12 || len(negativeWords) != 11 {
		t.Errorf("word lists: %d positive, %d negative", len(positiveWords), len(negativeWords))
	}
	seen := make(map[string]bool)
	for _, w := range append(append([]string(nil), positiveWords...), negativeWords...) {
		if w != strings.ToLower(w) {
			t.Errorf("keyword %q must be lowercase", w)
		}
		if seen[w] {
			t.Errorf("keyword %q listed twice", w)
		}
		seen[w] = true
	}
}
