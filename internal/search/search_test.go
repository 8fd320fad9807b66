package search

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/mctn/comtracker/pkg/models"
)

func TestBuildParamsOmitsEmptyAndTrims(t *testing.T) {
	c := models.SearchCriteria{Query: "  sonko  ", Exclude: " ", Lang: "fr"}
	p := BuildParams(c, 0)

	if got := p.Encode(); got != "q=sonko&lang=fr" {
		t.Errorf("Encode = %q, want %q", got, "q=sonko&lang=fr")
	}
	if p.Get(ParamExclude) != "" {
		t.Error("blank exclude must be omitted")
	}
	if p.Len() != 2 {
		t.Errorf("Len = %d, want 2", p.Len())
	}
}

func TestBuildParamsOrderAndCap(t *testing.T) {
	c := models.SearchCriteria{
		Query:   "new deal technologique",
		Exclude: "sport,football",
		Country: "sn",
		Lang:    "fr",
		Start:   "2025-07-01",
		End:     "2025-07-31",
	}
	got := BuildParams(c, DefaultResultCap).Encode()
	want := "q=new+deal+technologique&exclude=sport%2Cfootball&country=sn&lang=fr&start=2025-07-01&end=2025-07-31&n=1000"
	if got != want {
		t.Errorf("Encode =\n %s\nwant\n %s", got, want)
	}
}

func TestBuildParamsEmpty(t *testing.T) {
	p := BuildParams(models.SearchCriteria{}, 0)
	if p.Encode() != "" {
		t.Errorf("expected empty query string, got %q", p.Encode())
	}
	if got := p.URL("http://localhost:5002/articles"); got != "http://localhost:5002/articles" {
		t.Errorf("URL = %q", got)
	}
}

func TestParamsURL(t *testing.T) {
	p := BuildParams(models.SearchCriteria{Query: "x"}, 0)
	if got := p.URL("http://h/articles"); got != "http://h/articles?q=x" {
		t.Errorf("URL = %q", got)
	}
	if got := p.URL("http://h/articles?token=1"); got != "http://h/articles?token=1&q=x" {
		t.Errorf("URL with existing query = %q", got)
	}
}

func TestCriteriaFromQuery(t *testing.T) {
	v := url.Values{}
	v.Set("q", " mntc ")
	v.Set("country", "SN")
	v.Set("lang", "FR")
	v.Set("start", "2025-01-01")
	c := CriteriaFromQuery(v)
	want := models.SearchCriteria{Query: "mntc", Country: "sn", Lang: "fr", Start: "2025-01-01"}
	if c != want {
		t.Errorf("CriteriaFromQuery = %+v, want %+v", c, want)
	}
}

func sampleArticles() []models.Article {
	return []models.Article{
		{Title: "jan1", Date: "2024-01-01T08:00:00Z", Langue: "fr", Country: "sn"},
		{Title: "jan2-late", Date: "2024-01-02T23:59:59Z", Langue: "FR"},
		{Title: "jan3", Date: "2024-01-03T00:00:00Z", Langue: "en", Country: "us"},
		{Title: "dec31", Date: "2023-12-31T23:59:59Z", Country: "SN"},
		{Title: "undated", Date: "n/a", Langue: "fr"},
		{Title: "bare"},
	}
}

func titles(arts []models.Article) []string {
	out := make([]string, 0, len(arts))
	for _, a := range arts {
		out = append(out, a.Title)
	}
	return out
}

func TestFilterDateWindow(t *testing.T) {
	got := titles(Filter(sampleArticles(), models.SearchCriteria{Start: "2024-01-01", End: "2024-01-02"}))
	want := []string{"jan1", "jan2-late", "undated", "bare"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Filter = %v, want %v", got, want)
	}
}

func TestFilterLangCountryAbsencePasses(t *testing.T) {
	got := titles(Filter(sampleArticles(), models.SearchCriteria{Lang: "fr"}))
	want := []string{"jan1", "jan2-late", "dec31", "undated", "bare"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("lang filter = %v, want %v", got, want)
	}

	got = titles(Filter(sampleArticles(), models.SearchCriteria{Country: "SN"}))
	want = []string{"jan1", "jan2-late", "dec31", "undated", "bare"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("country filter = %v, want %v", got, want)
	}
}

func TestFilterInvalidBoundsIgnored(t *testing.T) {
	arts := sampleArticles()
	got := Filter(arts, models.SearchCriteria{Start: "yesterday"})
	if len(got) != len(arts) {
		t.Errorf("invalid start must not filter: got %d of %d", len(got), len(arts))
	}
}

func TestFilterIdempotent(t *testing.T) {
	criteria := []models.SearchCriteria{
		{},
		{Start: "2024-01-01", End: "2024-01-02"},
		{Lang: "fr", Country: "sn"},
		{Start: "2024-01-02", Lang: "en"},
	}
	for _, c := range criteria {
		once := Filter(sampleArticles(), c)
		twice := Filter(once, c)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Filter not idempotent for %+v: %v vs %v", c, titles(once), titles(twice))
		}
	}
}

func TestFilterDoesNotAlias(t *testing.T) {
	arts := sampleArticles()
	out := Filter(arts, models.SearchCriteria{})
	out[0].Title = "changed"
	if arts[0].Title == "changed" {
		t.Error("Filter result shares memory with its input")
	}
}

func TestMatchQuery(t *testing.T) {
	tests := []struct {
		q, text string
		want    bool
	}{
		{"", "anything", true},
		{"Jean Abraham Cena", "hello jean   abraham cena!", true},
		{"Jean Abraham Cena", "jean cena abraham", false},
		{"jean,Abraham,Cena", "only CENA here", true},
		{"jean, ,x", "nothing", false},
		{"sonko", "Ousmane SONKO", true},
	}
	for _, tt := range tests {
		if got := MatchQuery(tt.q, tt.text); got != tt.want {
			t.Errorf("MatchQuery(%q, %q) = %v, want %v", tt.q, tt.text, got, tt.want)
		}
	}
}

func TestExcluded(t *testing.T) {
	words := ExcludeWords("Sport, football  lutte")
	if !reflect.DeepEqual(words, []string{"sport", "football", "lutte"}) {
		t.Fatalf("ExcludeWords = %v", words)
	}
	if !Excluded(words, "Résultats de LUTTE") {
		t.Error("expected exclusion")
	}
	if Excluded(words, "politique") {
		t.Error("unexpected exclusion")
	}
	if Excluded(nil, "sport") {
		t.Error("no words must exclude nothing")
	}
}
