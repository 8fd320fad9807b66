package report

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mctn/comtracker/internal/llm"
	"github.com/mctn/comtracker/internal/logging"
	"github.com/mctn/comtracker/pkg/models"
)

// ErrNoArticles is returned when a report is requested for nothing.
var ErrNoArticles = errors.New("no articles supplied")

// maxRequestBody bounds the JSON accepted by the backend.
const maxRequestBody = 32 << 20

// Backend is an http.Handler writing reports with an LLM. It answers
// POST {articles, stats} with a text/event-stream of data: frames ending
// in [DONE], or [ERROR] <msg> when generation fails midway.
type Backend struct {
	provider     llm.LLMProvider
	opts         *llm.ChatOptions
	systemPrompt string
	articleLimit int
	log          zerolog.Logger
}

// BackendConfig tunes the prompt sent by a Backend.
type BackendConfig struct {
	SystemPrompt string
	ArticleLimit int
	Options      *llm.ChatOptions
}

// NewBackend creates a report backend over provider.
func NewBackend(provider llm.LLMProvider, cfg BackendConfig, log zerolog.Logger) *Backend {
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.ArticleLimit <= 0 {
		cfg.ArticleLimit = DefaultArticleLimit
	}
	if cfg.Options == nil {
		cfg.Options = llm.DefaultProviderConfig().Options()
	}
	return &Backend{
		provider:     provider,
		opts:         cfg.Options,
		systemPrompt: cfg.SystemPrompt,
		articleLimit: cfg.ArticleLimit,
		log:          log.With().Str("component", "report_backend").Logger(),
	}
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req models.ReportRequest
	// A missing or malformed body is treated as an empty request.
	raw, _ := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	_ = json.Unmarshal(raw, &req)

	if len(req.Articles) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": ErrNoArticles.Error()})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := b.Generate(r.Context(), w, req); err != nil {
		logging.FromContext(r.Context(), &b.log).Warn().Err(err).
			Int("articles", len(req.Articles)).Msg("Report generation failed")
		_ = WriteError(w, err.Error())
		return
	}
	_ = WriteDone(w)
}

// Generate streams the LLM answer for req to w as token frames. It does
// not write the terminating frame.
func (b *Backend) Generate(ctx context.Context, w io.Writer, req models.ReportRequest) error {
	messages := []llm.Message{
		llm.SystemMessage(b.systemPrompt),
		llm.UserMessage(BuildPrompt(req.Articles, req.Stats, b.articleLimit)),
	}

	chunks, err := b.provider.ChatStream(ctx, messages, b.opts)
	if err != nil {
		return err
	}
	for chunk := range chunks {
		if chunk.Err != nil {
			return chunk.Err
		}
		if chunk.Content == "" {
			continue
		}
		if err := WriteToken(w, chunk.Content); err != nil {
			return err
		}
	}
	return ctx.Err()
}
