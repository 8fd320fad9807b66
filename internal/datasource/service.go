package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mctn/comtracker/internal/infra"
	"github.com/mctn/comtracker/internal/search"
	"github.com/mctn/comtracker/pkg/models"
)

// Service fetches articles from one aggregation microservice, e.g. the
// Reddit service on :5003. It answers GET <endpoint>?q=..&exclude=..
// with either a JSON array or {"articles": [...]}.
type Service struct {
	name      string
	label     string
	endpoint  string
	resultCap int // 0 = do not send the n hint
	client    *http.Client
	cache     *infra.Cache[[]models.Article]
	log       zerolog.Logger
}

// NewService creates a microservice source. resultCap > 0 adds the n=<cap>
// hint to every request. A nil client uses http.DefaultClient.
func NewService(name, label, endpoint string, resultCap int, client *http.Client) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	return &Service{
		name:      name,
		label:     label,
		endpoint:  endpoint,
		resultCap: resultCap,
		client:    client,
		log:       zerolog.Nop(),
	}
}

// WithCache enables response caching keyed by the full request URL.
func (s *Service) WithCache(c *infra.Cache[[]models.Article]) *Service {
	s.cache = c
	return s
}

// WithLogger sets the logger used to report undecodable records.
func (s *Service) WithLogger(log zerolog.Logger) *Service {
	s.log = log
	return s
}

// Name returns the source identifier.
func (s *Service) Name() string { return s.name }

// Label returns the display name.
func (s *Service) Label() string { return s.label }

// RequestURL returns the URL queried for c.
func (s *Service) RequestURL(c models.SearchCriteria) string {
	return search.BuildParams(c, s.resultCap).URL(s.endpoint)
}

// Fetch queries the service and stamps every record with the label.
func (s *Service) Fetch(ctx context.Context, c models.SearchCriteria) ([]models.Article, error) {
	url := s.RequestURL(c)
	if cached, ok := s.cache.Get(url); ok {
		return append([]models.Article(nil), cached...), nil
	}

	body, err := doGet(ctx, s.client, url, nil)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", s.name, err)
	}
	payload, err := DecodePayload(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s response: %w", s.name, err)
	}
	s.log.Debug().Stringer("shape", payload.Shape).Int("articles", len(payload.Articles)).Msg("Source answered")
	if payload.Skipped > 0 {
		s.log.Warn().Int("skipped", payload.Skipped).Msg("Dropped unreadable records")
	}

	arts := make([]models.Article, 0, len(payload.Articles))
	for _, a := range payload.Articles {
		arts = append(arts, a.WithService(s.label))
	}

	s.cache.Set(url, arts)
	return append([]models.Article(nil), arts...), nil
}
