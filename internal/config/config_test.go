package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresChatCredential(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if !strings.Contains(err.Error(), "OPENROUTER_API_KEY") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "  sk-or-test  ")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenRouterAPIKey != "sk-or-test" {
		t.Fatalf("expected trimmed key, got %q", cfg.OpenRouterAPIKey)
	}
	if cfg.OpenRouterBaseURL != "https://openrouter.ai/api/v1" || cfg.OpenAIBaseURL != "https://api.openai.com/v1" {
		t.Fatalf("unexpected base URLs: %q %q", cfg.OpenRouterBaseURL, cfg.OpenAIBaseURL)
	}
	if cfg.TranscriptionModel != "gpt-4o-mini-transcribe" || cfg.SpeechModel != "gpt-4o-mini-tts" || cfg.SpeechVoice != "alloy" {
		t.Fatalf("unexpected speech defaults: %+v", cfg)
	}
	if cfg.MaxCompletionTokens != 1024 || cfg.AudioDir != "./tmp" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.GenerationTimeout != 60*time.Second {
		t.Fatalf("unexpected generation timeout: %v", cfg.GenerationTimeout)
	}
	if cfg.SpeechEnabled() {
		t.Fatal("speech must be disabled without OPENAI_API_KEY")
	}
	if len(cfg.OpenRouterHeaders()) != 0 {
		t.Fatalf("expected no attribution headers, got %v", cfg.OpenRouterHeaders())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "k")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("OPENROUTER_BASE_URL", "http://localhost:9999/v1/")
	t.Setenv("OPENROUTER_APP_TITLE", "Polyglot")
	t.Setenv("LOG_LEVEL", " DEBUG ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.OpenRouterBaseURL != "http://localhost:9999/v1" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.OpenRouterBaseURL)
	}
	if !cfg.SpeechEnabled() {
		t.Fatal("expected speech enabled")
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("unexpected log level: %q", cfg.LogLevel)
	}
	if cfg.OpenRouterHeaders()["X-Title"] != "Polyglot" {
		t.Fatalf("unexpected headers: %v", cfg.OpenRouterHeaders())
	}
}

func TestLoadRejectsNonPositiveValues(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "k")
	t.Setenv("MAX_COMPLETION_TOKENS", "0")

	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "MAX_COMPLETION_TOKENS") {
		t.Fatalf("expected token ceiling error, got %v", err)
	}
}
