// Package report streams the AI-written monitoring report. The Streamer
// posts articles and statistics to a report endpoint and accumulates the
// streamed tokens; Backend is the built-in endpoint that produces them
// with an LLM.
package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mctn/comtracker/pkg/models"
)

// Kind discriminates the outcome of a report stream.
type Kind string

const (
	// KindText: the stream completed and Text holds the narrative.
	KindText Kind = "text"
	// KindStats: the stream failed; only the statistics are available.
	KindStats Kind = "stats"
	// KindCancelled: the stream was superseded or aborted.
	KindCancelled Kind = "cancelled"
)

// Result is the outcome of Streamer.Stream.
type Result struct {
	Kind  Kind
	Text  string
	Stats models.AggregateStats
	Err   error
}

// Report converts the result to its wire form. Cancelled results have no
// report and return false.
func (r Result) Report() (models.Report, bool) {
	switch r.Kind {
	case KindText:
		return models.Report{Kind: models.ReportText, Text: r.Text}, true
	case KindStats:
		rep := models.Report{Kind: models.ReportStats, Stats: &r.Stats}
		if r.Err != nil {
			rep.Error = r.Err.Error()
		}
		return rep, true
	default:
		return models.Report{}, false
	}
}

// StreamError is a failure reported by the backend in an [ERROR] frame.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "report stream error: " + e.Message
}

// StatusError is a non-2xx answer of the report endpoint.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("report endpoint: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("report endpoint: HTTP %d", e.StatusCode)
}

// Streamer requests reports from an endpoint speaking the data: frame
// protocol.
type Streamer struct {
	endpoint string
	client   *http.Client
	log      zerolog.Logger
}

// NewStreamer creates a streamer posting to endpoint. A nil client uses
// an http.Client without timeout, since reports can take minutes.
func NewStreamer(endpoint string, client *http.Client, log zerolog.Logger) *Streamer {
	if client == nil {
		client = &http.Client{}
	}
	return &Streamer{
		endpoint: endpoint,
		client:   client,
		log:      log.With().Str("component", "report").Logger(),
	}
}

// Endpoint returns the URL reports are requested from.
func (s *Streamer) Endpoint() string { return s.endpoint }

// Stream posts {articles, stats} and calls onToken for each streamed token,
// in order, until the [DONE] sentinel or the end of the body. onToken may
// be nil. Once ctx is done no further token is delivered and the result is
// KindCancelled.
func (s *Streamer) Stream(ctx context.Context, articles []models.Article, stats models.AggregateStats, onToken func(string)) Result {
	start := time.Now()
	text, err := s.stream(ctx, articles, stats, onToken)

	if ctx.Err() != nil {
		s.log.Debug().Dur("elapsed", time.Since(start)).Msg("Report stream cancelled")
		return Result{Kind: KindCancelled, Text: text, Err: ctx.Err()}
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Report stream failed, falling back to stats")
		return Result{Kind: KindStats, Stats: stats, Err: err}
	}
	s.log.Debug().
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("Report stream complete")
	return Result{Kind: KindText, Text: text, Stats: stats}
}

func (s *Streamer) stream(ctx context.Context, articles []models.Article, stats models.AggregateStats, onToken func(string)) (string, error) {
	if articles == nil {
		articles = []models.Article{}
	}
	body, err := json.Marshal(models.ReportRequest{Articles: articles, Stats: stats})
	if err != nil {
		return "", fmt.Errorf("marshal report request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("POST %s: %w", s.endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", &StatusError{StatusCode: resp.StatusCode, Message: errorField(raw)}
	}

	var sb strings.Builder
	frames := NewFrameReader(resp.Body)
	for {
		frame, err := frames.Next()
		if errors.Is(err, io.EOF) {
			return sb.String(), nil
		}
		if err != nil {
			return sb.String(), fmt.Errorf("read report stream: %w", err)
		}
		if ctx.Err() != nil {
			return sb.String(), ctx.Err()
		}

		switch frame.Kind {
		case FrameDone:
			return sb.String(), nil
		case FrameError:
			return sb.String(), &StreamError{Message: frame.Data}
		case FrameToken:
			sb.WriteString(frame.Data)
			if onToken != nil {
				onToken(frame.Data)
			}
		}
	}
}

func errorField(raw []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) != nil {
		return strings.TrimSpace(string(raw))
	}
	return payload.Error
}
