package datasource

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"

	"github.com/mctn/comtracker/internal/infra"
	"github.com/mctn/comtracker/internal/search"
	"github.com/mctn/comtracker/pkg/models"
)

// Feed reads RSS/Atom feeds directly and applies the search criteria
// itself, the way the RSS microservice does.
type Feed struct {
	name    string
	label   string
	urls    []string
	parser  *gofeed.Parser
	limiter *infra.RateLimiter
	cache   *infra.Cache[*gofeed.Feed]
	log     zerolog.Logger
}

// NewFeed creates a feed source reading urls. perSecond bounds the feed
// request rate; values < 1 mean 2 requests per second.
func NewFeed(name, label string, urls []string, perSecond int, client *http.Client) *Feed {
	if perSecond < 1 {
		perSecond = 2
	}
	parser := gofeed.NewParser()
	parser.UserAgent = DefaultUserAgent
	if client != nil {
		parser.Client = client
	}
	return &Feed{
		name:    name,
		label:   label,
		urls:    urls,
		parser:  parser,
		limiter: infra.NewRateLimiter(perSecond, time.Second),
		log:     zerolog.Nop(),
	}
}

// WithCache enables caching of parsed feeds keyed by feed URL.
func (f *Feed) WithCache(c *infra.Cache[*gofeed.Feed]) *Feed {
	f.cache = c
	return f
}

// WithLogger sets the logger used to report skipped feeds.
func (f *Feed) WithLogger(log zerolog.Logger) *Feed {
	f.log = log
	return f
}

// Name returns the source identifier.
func (f *Feed) Name() string { return f.name }

// Label returns the display name.
func (f *Feed) Label() string { return f.label }

// Fetch reads every feed and keeps the items matching c. Feeds that fail
// to download or parse are skipped; an error is returned only when every
// feed failed.
func (f *Feed) Fetch(ctx context.Context, c models.SearchCriteria) ([]models.Article, error) {
	sel := newItemSelector(c)

	var (
		arts    []models.Article
		lastErr error
		failed  int
	)
	for _, u := range f.urls {
		feed, err := f.load(ctx, u)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			f.log.Warn().Err(err).Str("feed", u).Msg("Skipping feed")
			lastErr = err
			failed++
			continue
		}
		for _, item := range feed.Items {
			if a, ok := sel.article(item); ok {
				arts = append(arts, a.WithService(f.label))
			}
		}
	}
	if failed > 0 && failed == len(f.urls) {
		return nil, fmt.Errorf("all %d feeds failed: %w", failed, lastErr)
	}
	return arts, nil
}

func (f *Feed) load(ctx context.Context, url string) (*gofeed.Feed, error) {
	if cached, ok := f.cache.Get(url); ok {
		return cached, nil
	}
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	feed, err := f.parser.ParseURLWithContext(url, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", url, err)
	}
	f.cache.Set(url, feed)
	return feed, nil
}

// itemSelector applies search criteria to feed items.
type itemSelector struct {
	query   string
	exclude []string
	window  *search.Matcher
}

func newItemSelector(c models.SearchCriteria) itemSelector {
	return itemSelector{
		query:   c.Query,
		exclude: search.ExcludeWords(c.Exclude),
		window:  search.NewMatcher(models.SearchCriteria{Start: c.Start, End: c.End}),
	}
}

// article converts item when it has a date and matches the criteria.
// Items with neither a published nor an updated date are skipped.
func (s itemSelector) article(item *gofeed.Item) (models.Article, bool) {
	var date *time.Time
	switch {
	case item.PublishedParsed != nil:
		date = item.PublishedParsed
	case item.UpdatedParsed != nil:
		date = item.UpdatedParsed
	default:
		return models.Article{}, false
	}

	a := models.Article{
		Title:       strings.TrimSpace(item.Title),
		Description: cleanHTML(item.Description),
		URL:         item.Link,
		Date:        date.UTC().Format(time.RFC3339),
	}
	if item.Author != nil {
		a.Author = item.Author.Name
	}

	if !search.MatchQuery(s.query, a.Text()) {
		return models.Article{}, false
	}
	if search.Excluded(s.exclude, a.Text()) {
		return models.Article{}, false
	}
	if !s.window.Match(a) {
		return models.Article{}, false
	}
	return a, true
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

