// Package api provides the HTTP REST API server for ComTracker.
//
// It exposes endpoints for article searches, statistics, the built-in AI
// report backend, document rendering and WebSocket streaming of reports.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/mctn/comtracker/internal/config"
	"github.com/mctn/comtracker/internal/llm"
	"github.com/mctn/comtracker/internal/report"
	"github.com/mctn/comtracker/internal/tracker"
)

// Version is reported by /health. It is set by the CLI at startup.
var Version = "dev"

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	cfg     *config.Config
	tracker *tracker.Tracker
	backend http.Handler // nil when no LLM key is configured
	wsHub   *WSHub
	log     zerolog.Logger
	started time.Time
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config, log zerolog.Logger) (*Server, error) {
	var backend http.Handler
	b, err := NewReportBackend(cfg, log)
	switch {
	case errors.Is(err, llm.ErrNoAPIKey):
		log.Warn().Msg("No OpenAI key configured, /api/v1/ai/report is disabled")
	case err != nil:
		return nil, fmt.Errorf("report backend setup failed: %w", err)
	default:
		backend = b
	}

	return New(cfg, tracker.FromConfig(cfg, log), backend, log), nil
}

// New assembles a server from already built parts. backend may be nil.
func New(cfg *config.Config, tr *tracker.Tracker, backend http.Handler, log zerolog.Logger) *Server {
	srv := &Server{
		cfg:     cfg,
		tracker: tr,
		backend: backend,
		wsHub:   NewWSHub(log),
		log:     log.With().Str("component", "api").Logger(),
		started: time.Now(),
	}
	srv.router = srv.buildRouter()
	return srv
}

// NewReportBackend builds the LLM report backend from cfg. It returns
// llm.ErrNoAPIKey when no OpenAI key is configured.
func NewReportBackend(cfg *config.Config, log zerolog.Logger) (*report.Backend, error) {
	pc := llm.DefaultProviderConfig()
	pc.APIKey = cfg.LLM.OpenAIKey
	pc.BaseURL = cfg.LLM.BaseURL
	if cfg.LLM.Model != "" {
		pc.Model = cfg.LLM.Model
	}
	pc.Temperature = cfg.LLM.Temperature
	if cfg.LLM.MaxTokens > 0 {
		pc.MaxTokens = cfg.LLM.MaxTokens
	}

	provider, err := llm.NewOpenAIProviderFromConfig(pc, log)
	if err != nil {
		return nil, err
	}
	return report.NewBackend(provider, report.BackendConfig{
		SystemPrompt: cfg.LLM.SystemPrompt,
		ArticleLimit: cfg.LLM.ArticleLimit,
		Options:      pc.Options(),
	}, log), nil
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// Tracker returns the session tracker backing the server.
func (s *Server) Tracker() *tracker.Tracker {
	return s.tracker
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpSrv := &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: report streams and WebSockets are long-lived.
		IdleTimeout: 60 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.wsHub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	s.tracker.Close()
	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-ID"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(middleware.Recoverer)

	// CORS
	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", s.handleHealth)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Long-lived streams carry no deadline.
		r.Post("/ai/report", s.handleAIReport)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(120 * time.Second))

			r.Get("/health", s.handleHealth)

			// Searches
			r.Get("/sources", s.handleSources)
			r.Get("/articles", s.handleArticles)
			r.Post("/stats", s.handleStats)
			r.Post("/render", s.handleRender)

			// Config
			r.Get("/config", s.handleGetConfig)
			r.Put("/config", s.handleUpdateConfig)
			r.Get("/config/keys", s.handleGetConfigKeys)
		})
	})

	return r
}

// APIResponse is the standard JSON envelope of the API.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Encoding only fails once the client is gone.
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
