package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"

	"github.com/mctn/comtracker/internal/config"
)

func TestNewJSONLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LoggingConfig{Level: "warn", Format: "json"}, &buf)

	log.Info().Msg("hidden")
	log.Warn().Str("source", "reddit").Msg("shown")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("expected exactly one JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" || entry["source"] != "reddit" {
		t.Errorf("unexpected entry: %v", entry)
	}
}

func TestNewUnknownLevelDefaultsToInfo(t *testing.T) {
	log := New(config.LoggingConfig{Level: "chatty"}, &bytes.Buffer{})
	if log.GetLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", log.GetLevel())
	}
}

func TestNewConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LoggingConfig{Level: "debug", Format: "text"}, &buf)
	log.Debug().Msg("hello")
	if !bytes.Contains(buf.Bytes(), []byte("hello")) {
		t.Errorf("console output missing message: %q", buf.String())
	}
	if json.Valid(bytes.TrimSpace(buf.Bytes())) {
		t.Error("text format must not emit JSON")
	}
}

func TestFromContext(t *testing.T) {
	fallback := zerolog.Nop()
	if got := FromContext(context.Background(), &fallback); got != &fallback {
		t.Error("expected fallback without a context logger")
	}

	var buf bytes.Buffer
	ctxLog := zerolog.New(&buf)
	ctx := ctxLog.WithContext(context.Background())
	FromContext(ctx, &fallback).Info().Msg("via ctx")
	if !bytes.Contains(buf.Bytes(), []byte("via ctx")) {
		t.Error("expected the context logger to be used")
	}

	if FromContext(context.Background(), nil) == nil {
		t.Error("nil fallback must yield a usable logger")
	}
}
