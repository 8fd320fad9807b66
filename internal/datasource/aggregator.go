package datasource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/mctn/comtracker/internal/config"
	"github.com/mctn/comtracker/internal/infra"
	"github.com/mctn/comtracker/pkg/models"
)

// Aggregator fetches and merges articles from multiple sources concurrently.
type Aggregator struct {
	sources []Source
	byName  map[string]Source
	log     zerolog.Logger
}

// SourceError records the failure of one source during a fan-out.
type SourceError struct {
	Source string `json:"source"`
	Label  string `json:"label"`
	Err    error  `json:"-"`
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// FetchReport is the outcome of a search across one or more sources.
type FetchReport struct {
	Articles []models.Article
	Failures []*SourceError
	Elapsed  time.Duration
}

// Err joins the per-source failures, or returns nil.
func (r *FetchReport) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// NewAggregator creates an aggregator over the given sources. Their order is
// the merge order of FetchAll.
func NewAggregator(log zerolog.Logger, sources ...Source) *Aggregator {
	a := &Aggregator{
		sources: sources,
		byName:  make(map[string]Source, len(sources)),
		log:     log.With().Str("component", "datasource").Logger(),
	}
	for _, s := range sources {
		a.byName[s.Name()] = s
	}
	return a
}

// FromConfig builds the sources described by cfg and returns an aggregator
// over them.
func FromConfig(cfg *config.Config, log zerolog.Logger) *Aggregator {
	client := &http.Client{Timeout: cfg.Fetch.Timeout()}
	ttl := cfg.Fetch.CacheDuration()

	sources := make([]Source, 0, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		switch sc.Kind {
		case config.KindFeed:
			f := NewFeed(sc.Name, sc.Label, sc.Feeds, cfg.Fetch.FeedRate, client).
				WithLogger(log.With().Str("source", sc.Name).Logger())
			if ttl > 0 {
				f.WithCache(infra.NewCache[*gofeed.Feed](ttl))
			}
			sources = append(sources, f)
		default:
			resultCap := 0
			if sc.Capped {
				resultCap = cfg.Fetch.Cap
			}
			s := NewService(sc.Name, sc.Label, sc.Endpoint, resultCap, client).
				WithLogger(log.With().Str("source", sc.Name).Logger())
			if ttl > 0 {
				s.WithCache(infra.NewCache[[]models.Article](ttl))
			}
			sources = append(sources, s)
		}
	}
	return NewAggregator(log, sources...)
}

// Sources returns all registered sources in configuration order.
func (a *Aggregator) Sources() []Source {
	return append([]Source(nil), a.sources...)
}

// Source returns the source registered under name.
func (a *Aggregator) Source(name string) (Source, bool) {
	s, ok := a.byName[name]
	return s, ok
}

// FetchAll queries every source concurrently. A failing source never fails
// the whole search: it is logged, recorded in Failures and contributes no
// articles. Articles are concatenated in source order regardless of which
// source answered first.
func (a *Aggregator) FetchAll(ctx context.Context, c models.SearchCriteria) *FetchReport {
	start := time.Now()
	results := make([][]models.Article, len(a.sources))

	var mu sync.Mutex
	var failures []*SourceError

	g, gctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			arts, err := src.Fetch(gctx, c)
			if err != nil {
				a.log.Warn().Err(err).Str("source", src.Name()).Msg("Source fetch failed")
				mu.Lock()
				failures = append(failures, &SourceError{Source: src.Name(), Label: src.Label(), Err: err})
				mu.Unlock()
				return nil // non-fatal
			}
			results[i] = arts
			return nil
		})
	}
	_ = g.Wait()

	report := &FetchReport{Elapsed: time.Since(start)}
	for _, arts := range results {
		report.Articles = append(report.Articles, arts...)
	}
	// Report failures in source order too.
	for _, src := range a.sources {
		for _, f := range failures {
			if f.Source == src.Name() {
				report.Failures = append(report.Failures, f)
			}
		}
	}

	a.log.Debug().
		Int("articles", len(report.Articles)).
		Int("failed", len(report.Failures)).
		Dur("elapsed", report.Elapsed).
		Msg("Fan-out complete")
	return report
}

// Fetch queries a single source. Unlike FetchAll, a failure is returned to
// the caller.
func (a *Aggregator) Fetch(ctx context.Context, name string, c models.SearchCriteria) ([]models.Article, error) {
	src, ok := a.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, name)
	}
	arts, err := src.Fetch(ctx, c)
	if err != nil {
		return nil, &SourceError{Source: src.Name(), Label: src.Label(), Err: err}
	}
	if arts == nil {
		arts = []models.Article{}
	}
	return arts, nil
}

// Search dispatches on service: config.AllSources fans out to every source,
// any other value queries that source alone.
func (a *Aggregator) Search(ctx context.Context, service string, c models.SearchCriteria) (*FetchReport, error) {
	if len(a.sources) == 0 {
		return nil, ErrNoSources
	}
	if service == "" || service == config.AllSources {
		return a.FetchAll(ctx, c), nil
	}

	start := time.Now()
	arts, err := a.Fetch(ctx, service, c)
	if err != nil {
		return nil, err
	}
	return &FetchReport{Articles: arts, Elapsed: time.Since(start)}, nil
}
