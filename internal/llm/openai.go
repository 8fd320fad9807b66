package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/packages/ssestream"
	"github.com/rs/zerolog"
)

// OpenAIProvider implements LLMProvider for OpenAI's Chat Completions API,
// or any endpoint compatible with it.
type OpenAIProvider struct {
	client openai.Client
	model  string
	log    zerolog.Logger
}

type openAISettings struct {
	baseURL    string
	model      string
	httpClient *http.Client
	log        zerolog.Logger
	extra      []option.RequestOption
}

// OpenAIOption configures the OpenAI provider.
type OpenAIOption func(*openAISettings)

// WithOpenAIBaseURL sets a custom base URL (e.g., for Azure OpenAI or proxies).
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(s *openAISettings) { s.baseURL = strings.TrimRight(url, "/") + "/" }
}

// WithOpenAIModel sets the default model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(s *openAISettings) { s.model = model }
}

// WithOpenAIHTTPClient sets a custom HTTP client.
func WithOpenAIHTTPClient(client *http.Client) OpenAIOption {
	return func(s *openAISettings) { s.httpClient = client }
}

// WithOpenAILogger sets the logger used for request tracing.
func WithOpenAILogger(log zerolog.Logger) OpenAIOption {
	return func(s *openAISettings) { s.log = log }
}

// WithOpenAIRequestOptions passes extra options to the underlying client.
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(s *openAISettings) { s.extra = append(s.extra, opts...) }
}

// NewOpenAIProvider creates an OpenAI provider.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) (*OpenAIProvider, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	s := openAISettings{
		model:      DefaultProviderConfig().Model,
		httpClient: &http.Client{Timeout: DefaultProviderConfig().Timeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&s)
	}

	log := s.log.With().Str("provider", ProviderOpenAI).Logger()
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(s.httpClient),
		option.WithMiddleware(requestTraceMiddleware(log)),
	}
	if s.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(s.baseURL))
	}
	reqOpts = append(reqOpts, s.extra...)

	return &OpenAIProvider{
		client: openai.NewClient(reqOpts...),
		model:  s.model,
		log:    log,
	}, nil
}

// NewOpenAIProviderFromConfig creates a provider from cfg.
func NewOpenAIProviderFromConfig(cfg ProviderConfig, log zerolog.Logger) (*OpenAIProvider, error) {
	opts := []OpenAIOption{WithOpenAIModel(cfg.Model), WithOpenAILogger(log)}
	if cfg.BaseURL != "" {
		opts = append(opts, WithOpenAIBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, WithOpenAIHTTPClient(&http.Client{Timeout: cfg.Timeout}))
	}
	return NewOpenAIProvider(cfg.APIKey, opts...)
}

func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// ChatStream sends a streaming chat completion request. Errors that occur
// before the first chunk arrives are returned directly; later ones are
// delivered as the final chunk.
func (p *OpenAIProvider) ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamChunk, error) {
	params := p.buildParams(messages, opts)
	stream := p.client.Chat.Completions.NewStreaming(ctx, params)

	if !stream.Next() {
		err := stream.Err()
		stream.Close()
		if err != nil {
			return nil, mapError(err)
		}
		ch := make(chan StreamChunk, 1)
		ch <- StreamChunk{Done: true, FinishReason: FinishStop}
		close(ch)
		return ch, nil
	}

	ch := make(chan StreamChunk, 64)
	go p.readStream(ctx, stream, ch)
	return ch, nil
}

func (p *OpenAIProvider) buildParams(messages []Message, opts *ChatOptions) openai.ChatCompletionNewParams {
	model := p.model
	if opts != nil && opts.Model != "" {
		model = opts.Model
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: convertToOpenAIMessages(messages),
	}
	if opts != nil {
		if opts.MaxTokens > 0 {
			params.MaxCompletionTokens = openai.Int(int64(opts.MaxTokens))
		}
		if opts.Temperature > 0 {
			params.Temperature = openai.Float(opts.Temperature)
		}
	}
	return params
}

// readStream forwards the chunks of stream, the first of which has already
// been read by Next.
func (p *OpenAIProvider) readStream(ctx context.Context, stream *ssestream.Stream[openai.ChatCompletionChunk], ch chan<- StreamChunk) {
	defer close(ch)
	defer stream.Close()

	send := func(sc StreamChunk) bool {
		select {
		case ch <- sc:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		chunk := stream.Current()
		for _, choice := range chunk.Choices {
			sc := StreamChunk{Content: choice.Delta.Content}
			if fr := string(choice.FinishReason); fr != "" {
				sc.FinishReason = mapFinishReason(fr)
				sc.Done = fr == "stop" || fr == "length"
			}
			if sc.Content == "" && sc.FinishReason == "" {
				continue
			}
			if !send(sc) {
				return
			}
		}
		if !stream.Next() {
			break
		}
	}

	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return
		}
		p.log.Warn().Err(err).Msg("Stream interrupted")
		send(StreamChunk{Err: fmt.Errorf("openai: stream read: %w", mapError(err)), FinishReason: FinishError})
	}
}

func convertToOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

func mapFinishReason(reason string) FinishReason {
	switch reason {
	case "stop":
		return FinishStop
	case "length":
		return FinishLength
	default:
		return FinishReason(reason)
	}
}

// mapError translates API status codes to the package sentinels.
func mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	}
	switch {
	case apiErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %v", ErrNoAPIKey, err)
	case apiErr.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimit, err)
	case apiErr.StatusCode == http.StatusBadRequest && strings.Contains(err.Error(), "context_length"):
		return fmt.Errorf("%w: %v", ErrContextLength, err)
	case apiErr.StatusCode >= 500:
		return fmt.Errorf("%w: %v", ErrProviderDown, err)
	default:
		return err
	}
}

func requestTraceMiddleware(log zerolog.Logger) option.Middleware {
	return func(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
		start := time.Now()
		resp, err := next(req)
		evt := log.Debug().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Dur("elapsed", time.Since(start))
		if resp != nil {
			evt = evt.Int("status", resp.StatusCode)
		}
		evt.Err(err).Msg("LLM request")
		return resp, err
	}
}
