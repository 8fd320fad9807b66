// Package llm provides the language-model backend used to write the
// narrative monitoring report. Providers stream their answer as a channel
// of chunks.
package llm

import (
	"context"
	"errors"
	"time"
)

// Provider names for configuration.
const (
	ProviderOpenAI = "openai"
)

// Errors providers map their failures to.
var (
	ErrNoAPIKey      = errors.New("llm: API key not configured")
	ErrRateLimit     = errors.New("llm: rate limit exceeded")
	ErrContextLength = errors.New("llm: context length exceeded")
	ErrProviderDown  = errors.New("llm: provider unavailable")
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// FinishReason tells why generation ended.
type FinishReason string

const (
	FinishStop   FinishReason = "stop"
	FinishLength FinishReason = "length"
	FinishError  FinishReason = "error"
)

// Message is one turn of the prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// StreamChunk is one piece of a streamed answer.
type StreamChunk struct {
	Content      string       `json:"content,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	Done         bool         `json:"done"`
	Err          error        `json:"-"`
}

// ChatOptions are per-request model settings.
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
}

// LLMProvider streams chat completions.
type LLMProvider interface {
	// Name returns the provider identifier (e.g., "openai").
	Name() string

	// ChatStream sends a conversation and returns a channel of streaming chunks.
	// The channel is closed when the response is complete or ctx is done.
	// A chunk with Err set is always the last one.
	ChatStream(ctx context.Context, messages []Message, opts *ChatOptions) (<-chan StreamChunk, error)
}

// ProviderConfig is what a provider constructor needs.
type ProviderConfig struct {
	APIKey      string        `json:"api_key,omitempty"`
	BaseURL     string        `json:"base_url,omitempty"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Timeout     time.Duration `json:"timeout"`
}

// DefaultProviderConfig returns the settings the report backend used
// historically.
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Model:       "gpt-3.5-turbo",
		Temperature: 0.3,
		MaxTokens:   1000,
		Timeout:     120 * time.Second,
	}
}

// Options returns the per-request options of the config.
func (c ProviderConfig) Options() *ChatOptions {
	return &ChatOptions{Model: c.Model, Temperature: c.Temperature, MaxTokens: c.MaxTokens}
}

// NewMessage builds a message.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

func SystemMessage(content string) Message {
	return NewMessage(RoleSystem, content)
}

func UserMessage(content string) Message {
	return NewMessage(RoleUser, content)
}

func AssistantMessage(content string) Message {
	return NewMessage(RoleAssistant, content)
}
