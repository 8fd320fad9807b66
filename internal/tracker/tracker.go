// Package tracker runs a monitoring session: it fetches articles for a
// search, re-filters them, derives statistics and streams the AI report
// of the latest search to a sink.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mctn/comtracker/internal/analysis/stats"
	"github.com/mctn/comtracker/internal/config"
	"github.com/mctn/comtracker/internal/datasource"
	"github.com/mctn/comtracker/internal/report"
	"github.com/mctn/comtracker/internal/search"
	"github.com/mctn/comtracker/pkg/models"
)

// Result is the outcome of one search.
type Result struct {
	ID       string                    `json:"id"`
	Service  string                    `json:"service"`
	Criteria models.SearchCriteria     `json:"criteria"`
	Articles []models.Article          `json:"articles"`
	Fetched  int                       `json:"fetched"` // before filtering
	Failures []*datasource.SourceError `json:"failures,omitempty"`
	Stats    models.AggregateStats     `json:"stats"`
	Insights models.Insights           `json:"insights"`
	Elapsed  time.Duration             `json:"elapsed"`
}

// EventType identifies a report event.
type EventType string

const (
	EventToken    EventType = "token"    // one more piece of report text
	EventDone     EventType = "done"     // the report text is complete
	EventFallback EventType = "fallback" // the stream failed; Report carries the stats
)

// ReportEvent is delivered to a Sink while a report streams. Token events
// are numbered from 1 by Seq; the final event carries the number of tokens
// streamed, so a consumer that may lose events can detect gaps.
type ReportEvent struct {
	Generation string         `json:"generation"`
	SearchID   string         `json:"search_id"`
	Type       EventType      `json:"type"`
	Seq        int            `json:"seq"`
	Token      string         `json:"token,omitempty"`
	Report     *models.Report `json:"report,omitempty"`
}

// Sink receives report events. It is called from the streaming goroutine
// and must not call back into the Tracker.
type Sink func(ReportEvent)

// Tracker coordinates searches and report streams. Only the generation
// started by the latest StartReport delivers events.
type Tracker struct {
	agg      *datasource.Aggregator
	streamer *report.Streamer
	gens     report.Generations
	log      zerolog.Logger

	// deliverMu makes "is this generation current" and "deliver" atomic
	// with respect to Begin.
	deliverMu sync.Mutex
	wg        sync.WaitGroup
}

// New creates a tracker. A nil streamer disables reports.
func New(agg *datasource.Aggregator, streamer *report.Streamer, log zerolog.Logger) *Tracker {
	return &Tracker{
		agg:      agg,
		streamer: streamer,
		log:      log.With().Str("component", "tracker").Logger(),
	}
}

// FromConfig builds a tracker over the configured sources. Reports are
// streamed from cfg.Report.Endpoint when enabled.
func FromConfig(cfg *config.Config, log zerolog.Logger) *Tracker {
	var streamer *report.Streamer
	if cfg.Report.Enabled && cfg.Report.Endpoint != "" {
		streamer = report.NewStreamer(cfg.Report.Endpoint, nil, log)
	}
	return New(datasource.FromConfig(cfg, log), streamer, log)
}

// Sources returns the sources searches can target.
func (t *Tracker) Sources() []datasource.Source {
	return t.agg.Sources()
}

// ReportsEnabled reports whether StartReport does anything.
func (t *Tracker) ReportsEnabled() bool {
	return t.streamer != nil
}

// ReportEndpoint returns the report service address, or "" when reports
// are disabled.
func (t *Tracker) ReportEndpoint() string {
	if t.streamer == nil {
		return ""
	}
	return t.streamer.Endpoint()
}

// Search fetches articles from service (or every source for "all"),
// filters them against criteria and computes their statistics. A new
// search cancels the report stream of the previous one. Failures of
// individual sources in "all" mode are reported in Result.Failures; a
// single-source failure is returned as an error.
func (t *Tracker) Search(ctx context.Context, service string, criteria models.SearchCriteria) (*Result, error) {
	t.cancelReport()

	criteria = criteria.Normalize()
	start := time.Now()

	fetched, err := t.agg.Search(ctx, service, criteria)
	if err != nil {
		t.log.Warn().Err(err).Str("service", service).Msg("Search failed")
		return nil, err
	}

	articles := search.Filter(fetched.Articles, criteria)
	res := &Result{
		ID:       uuid.NewString(),
		Service:  service,
		Criteria: criteria,
		Articles: articles,
		Fetched:  len(fetched.Articles),
		Failures: fetched.Failures,
		Stats:    stats.Compute(articles),
		Insights: stats.Insights(articles),
		Elapsed:  time.Since(start),
	}

	t.log.Info().
		Str("search_id", res.ID).
		Str("service", service).
		Str("query", criteria.Query).
		Int("fetched", res.Fetched).
		Int("kept", len(articles)).
		Int("failed_sources", len(res.Failures)).
		Dur("elapsed", res.Elapsed).
		Msg("Search complete")
	return res, nil
}

// StartReport begins a new report generation for res, superseding any
// stream still running, and returns its ID. Events are delivered to sink
// in order from a background goroutine. It returns "" when reports are
// disabled.
//
// An empty result is not sent to the report endpoint, which rejects it;
// the sink receives the stats fallback straight away.
func (t *Tracker) StartReport(parent context.Context, res *Result, sink Sink) string {
	if t.streamer == nil || res == nil {
		return ""
	}

	t.deliverMu.Lock()
	gen := t.gens.Begin(parent)
	t.deliverMu.Unlock()

	deliver := func(ev ReportEvent) bool {
		ev.Generation = gen.ID
		ev.SearchID = res.ID
		t.deliverMu.Lock()
		defer t.deliverMu.Unlock()
		if !t.gens.IsCurrent(gen.ID) {
			return false
		}
		if sink != nil {
			sink(ev)
		}
		return true
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer gen.Release()

		if len(res.Articles) == 0 {
			rep := models.Report{Kind: models.ReportStats, Stats: &res.Stats, Error: report.ErrNoArticles.Error()}
			deliver(ReportEvent{Type: EventFallback, Report: &rep})
			return
		}

		seq := 0
		result := t.streamer.Stream(gen.Context(), res.Articles, res.Stats, func(tok string) {
			seq++
			deliver(ReportEvent{Type: EventToken, Seq: seq, Token: tok})
		})

		rep, ok := result.Report()
		if !ok {
			t.log.Debug().Str("generation", gen.ID).Msg("Report superseded")
			return
		}
		typ := EventDone
		if result.Kind == report.KindStats {
			typ = EventFallback
		}
		deliver(ReportEvent{Type: typ, Seq: seq, Report: &rep})
	}()
	return gen.ID
}

// CurrentGeneration returns the ID of the report generation allowed to
// deliver events, or "".
func (t *Tracker) CurrentGeneration() string {
	return t.gens.Current()
}

// Wait blocks until every report goroutine has returned.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close cancels the running report and waits for it to stop.
func (t *Tracker) Close() {
	t.cancelReport()
	t.wg.Wait()
}

func (t *Tracker) cancelReport() {
	t.deliverMu.Lock()
	t.gens.Cancel()
	t.deliverMu.Unlock()
}
