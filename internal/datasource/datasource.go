// Package datasource fetches articles from the configured content sources.
// It defines a common Source interface with two implementations: Service,
// for the per-platform aggregation microservices, and Feed, for RSS/Atom
// feeds parsed in-process. Aggregator fans a search out to all of them.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mctn/comtracker/pkg/models"
)

// Source defines the common interface that all content sources implement.
type Source interface {
	// Name returns the identifier used to select this source, e.g. "reddit".
	Name() string

	// Label returns the display name stamped on every returned article.
	Label() string

	// Fetch returns the articles matching c. Every article carries
	// service = Label().
	Fetch(ctx context.Context, c models.SearchCriteria) ([]models.Article, error)
}

// --- Sentinel errors ---

// ErrUnknownSource is returned when a search names a source that is not configured.
var ErrUnknownSource = errors.New("unknown source")

// ErrNoSources is returned when the aggregator has nothing to query.
var ErrNoSources = errors.New("no sources configured")

// ErrHTTP wraps an HTTP error with status code. Message holds the
// upstream "error" field when the body carried one.
type ErrHTTP struct {
	StatusCode int
	Status     string
	Message    string
	Body       string
}

func (e *ErrHTTP) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, e.Status, e.Body)
}

// UserMessage returns the message shown to users when fetching from the
// source labelled label failed: the upstream error text if there is one,
// otherwise "Erreur <label>".
func UserMessage(err error, label string) string {
	var httpErr *ErrHTTP
	if errors.As(err, &httpErr) && httpErr.Message != "" {
		return httpErr.Message
	}
	return "Erreur " + label
}

// --- Shared HTTP client helpers ---

// DefaultUserAgent is the user agent string used for HTTP requests.
const DefaultUserAgent = "ComTracker/1.0 (+https://github.com/mctn/comtracker)"

// doGet performs a GET request with the given URL and headers, returning the response body.
// The caller is responsible for closing the returned ReadCloser.
func doGet(ctx context.Context, client *http.Client, url string, headers map[string]string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", DefaultUserAgent)
	req.Header.Set("Accept", "application/json, */*")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP GET %s: %w", url, err)
	}

	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ErrHTTP{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    upstreamError(body),
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return resp.Body, nil
}

// upstreamError extracts the "error" field of a JSON error body.
func upstreamError(body []byte) string {
	var payload struct {
		Error any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch v := payload.Error.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}
