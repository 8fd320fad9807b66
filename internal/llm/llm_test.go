package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
)

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		msg  Message
		role Role
	}{
		{SystemMessage("s"), RoleSystem},
		{UserMessage("u"), RoleUser},
		{AssistantMessage("a"), RoleAssistant},
	}
	for _, tt := range tests {
		if tt.msg.Role != tt.role {
			t.Errorf("role = %q, want %q", tt.msg.Role, tt.role)
		}
	}
}

func TestDefaultProviderConfig(t *testing.T) {
	cfg := DefaultProviderConfig()
	opts := cfg.Options()
	if opts.Model != "gpt-3.5-turbo" || opts.MaxTokens != 1000 || opts.Temperature != 0.3 {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestOpenAIProviderNew(t *testing.T) {
	if _, err := NewOpenAIProvider(""); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
	p, err := NewOpenAIProvider("sk-test")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != ProviderOpenAI {
		t.Errorf("Name = %q", p.Name())
	}
}

// sseChunk renders one chat.completion.chunk event.
func sseChunk(content, finish string) string {
	fr := "null"
	if finish != "" {
		fr = fmt.Sprintf("%q", finish)
	}
	c, _ := json.Marshal(content)
	return fmt.Sprintf(`data: {"id":"c1","object":"chat.completion.chunk","created":1,"model":"gpt-3.5-turbo","choices":[{"index":0,"delta":{"content":%s},"finish_reason":%s}]}`+"\n\n", c, fr)
}

func newMockOpenAIServer(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewOpenAIProvider("sk-test",
		WithOpenAIBaseURL(srv.URL),
		WithOpenAIRequestOptions(option.WithMaxRetries(0)),
	)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestOpenAIChatStream(t *testing.T) {
	var gotBody map[string]any
	p := newMockOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, sseChunk("Bon", ""))
		fmt.Fprint(w, sseChunk("jour", ""))
		fmt.Fprint(w, sseChunk("", "stop"))
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	ch, err := p.ChatStream(context.Background(),
		[]Message{SystemMessage("Réponds en français."), UserMessage("Analyse")},
		&ChatOptions{Model: "gpt-3.5-turbo", MaxTokens: 1000, Temperature: 0.3})
	if err != nil {
		t.Fatalf("ChatStream: %v", err)
	}

	var sb strings.Builder
	var done bool
	for c := range ch {
		if c.Err != nil {
			t.Fatalf("chunk error: %v", c.Err)
		}
		sb.WriteString(c.Content)
		done = done || c.Done
	}
	if sb.String() != "Bonjour" {
		t.Errorf("content = %q, want Bonjour", sb.String())
	}
	if !done {
		t.Error("expected a Done chunk")
	}

	if gotBody["model"] != "gpt-3.5-turbo" || gotBody["stream"] != true {
		t.Errorf("unexpected request body: %v", gotBody)
	}
	msgs, _ := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", gotBody["messages"])
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message = %v", msgs[0])
	}
}

func TestOpenAIChatStreamErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrNoAPIKey},
		{http.StatusTooManyRequests, ErrRateLimit},
		{http.StatusInternalServerError, ErrProviderDown},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			p := newMockOpenAIServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, `{"error":{"message":"nope","type":"test"}}`)
			})
			_, err := p.ChatStream(context.Background(), []Message{UserMessage("x")}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestOpenAIChatStreamUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, _ := NewOpenAIProvider("sk-test", WithOpenAIBaseURL(url),
		WithOpenAIRequestOptions(option.WithMaxRetries(0)))
	_, err := p.ChatStream(context.Background(), []Message{UserMessage("x")}, nil)
	if !errors.Is(err, ErrProviderDown) {
		t.Fatalf("expected ErrProviderDown, got %v", err)
	}
}

func TestMapFinishReason(t *testing.T) {
	if mapFinishReason("stop") != FinishStop || mapFinishReason("length") != FinishLength {
		t.Error("unexpected mapping")
	}
	if mapFinishReason("content_filter") != "content_filter" {
		t.Error("unknown reasons must pass through")
	}
}
