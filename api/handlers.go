package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mctn/comtracker/internal/analysis/stats"
	"github.com/mctn/comtracker/internal/config"
	"github.com/mctn/comtracker/internal/datasource"
	"github.com/mctn/comtracker/internal/render"
	"github.com/mctn/comtracker/internal/search"
	"github.com/mctn/comtracker/internal/tracker"
	"github.com/mctn/comtracker/pkg/models"
)

// maxBody bounds JSON request bodies.
const maxBody = 32 << 20

// SourceInfo describes a searchable source.
type SourceInfo struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// SourceFailure is a source that failed during an "all" search.
type SourceFailure struct {
	Source  string `json:"source"`
	Label   string `json:"label"`
	Message string `json:"message"`
}

// ArticlesResponse is the data of GET /api/v1/articles.
type ArticlesResponse struct {
	*tracker.Result
	SourceErrors []SourceFailure `json:"source_errors,omitempty"`
	// Generation identifies the report streamed over /api/v1/ws.
	Generation string `json:"report_generation,omitempty"`
}

// StatsRequest is the body for POST /api/v1/stats. When Criteria is set
// the articles are filtered first.
type StatsRequest struct {
	Articles []models.Article      `json:"articles"`
	Criteria *models.SearchCriteria `json:"criteria,omitempty"`
}

// StatsResponse is the data of POST /api/v1/stats.
type StatsResponse struct {
	Stats    models.AggregateStats `json:"stats"`
	Insights models.Insights       `json:"insights"`
	Domains  []models.SourceCount  `json:"domains"`
	Kept     int                   `json:"kept"`
}

// RenderRequest is the body for POST /api/v1/render.
type RenderRequest struct {
	Title    string                `json:"title,omitempty"`
	Service  string                `json:"service,omitempty"`
	Criteria models.SearchCriteria `json:"criteria"`
	Articles []models.Article      `json:"articles"`
	Report   *models.Report        `json:"report,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":     "ok",
			"version":    Version,
			"uptime":     time.Since(s.started).Round(time.Second).String(),
			"sources":    len(s.tracker.Sources()),
			"reports":    s.tracker.ReportEndpoint(),
			"ai_backend": s.backend != nil,
			"ws_clients": s.wsHub.ClientCount(),
			"time_utc":   time.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources := s.tracker.Sources()
	out := make([]SourceInfo, len(sources))
	for i, src := range sources {
		out[i] = SourceInfo{Name: src.Name(), Label: src.Label()}
	}
	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: out})
}

// handleArticles runs a search. Unless report=false, the AI report of the
// result is streamed to WebSocket subscribers in the background.
func (s *Server) handleArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	service := strings.ToLower(strings.TrimSpace(q.Get("service")))
	if service == "" {
		service = config.AllSources
	}

	res, err := s.tracker.Search(r.Context(), service, search.CriteriaFromQuery(q))
	if err != nil {
		writeSearchError(w, err)
		return
	}

	resp := ArticlesResponse{Result: res}
	for _, f := range res.Failures {
		resp.SourceErrors = append(resp.SourceErrors, SourceFailure{
			Source:  f.Source,
			Label:   f.Label,
			Message: datasource.UserMessage(f.Err, f.Label),
		})
	}
	if q.Get("report") != "false" {
		// The stream outlives the request.
		resp.Generation = s.tracker.StartReport(context.Background(), res, s.broadcastReport)
	}

	writeJSON(w, http.StatusOK, APIResponse{Success: true, Data: resp})
}

func writeSearchError(w http.ResponseWriter, err error) {
	var se *datasource.SourceError
	switch {
	case errors.Is(err, datasource.ErrUnknownSource):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, datasource.ErrNoSources):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "search timed out")
	case errors.As(err, &se):
		writeError(w, http.StatusBadGateway, datasource.UserMessage(se.Err, se.Label))
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	var req StatsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	articles := req.Articles
	if req.Criteria != nil {
		articles = search.Filter(articles, req.Criteria.Normalize())
	}
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: StatsResponse{
			Stats:    stats.Compute(articles),
			Insights: stats.Insights(articles),
			Domains:  stats.Domains(articles, render.DomainsLimit),
			Kept:     len(articles),
		},
	})
}

// handleRender renders posted articles and report as html (default),
// markdown or text.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := render.Input{
		Title:       req.Title,
		Service:     req.Service,
		Criteria:    req.Criteria.Normalize(),
		Articles:    req.Articles,
		Stats:       stats.Compute(req.Articles),
		Insights:    stats.Insights(req.Articles),
		Report:      req.Report,
		GeneratedAt: time.Now(),
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "html":
		doc, err := render.HTML(in)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, doc)
	case "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = io.WriteString(w, render.Markdown(in))
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, render.Text(in))
	default:
		writeError(w, http.StatusBadRequest, "unknown format: "+format)
	}
}

func (s *Server) handleAIReport(w http.ResponseWriter, r *http.Request) {
	if s.backend == nil {
		writeError(w, http.StatusServiceUnavailable, "AI report backend disabled: no OpenAI key configured")
		return
	}
	s.backend.ServeHTTP(w, r)
}

// broadcastReport forwards report events to WebSocket subscribers.
func (s *Server) broadcastReport(ev tracker.ReportEvent) {
	s.wsHub.Broadcast(WSMessage{Type: "report." + string(ev.Type), Data: ev})
}
