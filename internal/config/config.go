package config

import (
	"errors"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

type Config struct {
	ListenAddr           string
	OpenRouterBaseURL    string
	OpenRouterAPIKey     string
	OpenRouterAppURL     string
	OpenRouterAppTitle   string
	OpenAIBaseURL        string
	OpenAIAPIKey         string
	TranscriptionModel   string
	SpeechModel          string
	SpeechVoice          string
	MaxCompletionTokens  int
	CatalogFile          string
	AudioDir             string
	RequestTimeout       time.Duration
	TranscriptionTimeout time.Duration
	GenerationTimeout    time.Duration
	SynthesisTimeout     time.Duration
	MaxUploadBytes       int64
	LogLevel             string
}

type envConfig struct {
	ListenAddr                  string `env:"LISTEN_ADDR" envDefault:":8080"`
	OpenRouterBaseURL           string `env:"OPENROUTER_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
	OpenRouterAPIKey            string `env:"OPENROUTER_API_KEY"`
	OpenRouterAppURL            string `env:"OPENROUTER_APP_URL"`
	OpenRouterAppTitle          string `env:"OPENROUTER_APP_TITLE"`
	OpenAIBaseURL               string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey                string `env:"OPENAI_API_KEY"`
	TranscriptionModel          string `env:"TRANSCRIPTION_MODEL" envDefault:"gpt-4o-mini-transcribe"`
	SpeechModel                 string `env:"SPEECH_MODEL" envDefault:"gpt-4o-mini-tts"`
	SpeechVoice                 string `env:"SPEECH_VOICE" envDefault:"alloy"`
	MaxCompletionTokens         int    `env:"MAX_COMPLETION_TOKENS" envDefault:"1024"`
	CatalogFile                 string `env:"CATALOG_FILE"`
	AudioDir                    string `env:"AUDIO_DIR" envDefault:"./tmp"`
	RequestTimeoutSeconds       int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"60"`
	TranscriptionTimeoutSeconds int    `env:"TRANSCRIPTION_TIMEOUT_SECONDS" envDefault:"30"`
	GenerationTimeoutSeconds    int    `env:"GENERATION_TIMEOUT_SECONDS" envDefault:"60"`
	SynthesisTimeoutSeconds     int    `env:"SYNTHESIS_TIMEOUT_SECONDS" envDefault:"60"`
	MaxUploadBytes              int64  `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	LogLevel                    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads the process environment once. OPENROUTER_API_KEY is mandatory;
// an empty OPENAI_API_KEY only disables transcription and speech.
func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	cfg := Config{
		ListenAddr:           strings.TrimSpace(raw.ListenAddr),
		OpenRouterBaseURL:    strings.TrimRight(strings.TrimSpace(raw.OpenRouterBaseURL), "/"),
		OpenRouterAPIKey:     strings.TrimSpace(raw.OpenRouterAPIKey),
		OpenRouterAppURL:     strings.TrimSpace(raw.OpenRouterAppURL),
		OpenRouterAppTitle:   strings.TrimSpace(raw.OpenRouterAppTitle),
		OpenAIBaseURL:        strings.TrimRight(strings.TrimSpace(raw.OpenAIBaseURL), "/"),
		OpenAIAPIKey:         strings.TrimSpace(raw.OpenAIAPIKey),
		TranscriptionModel:   strings.TrimSpace(raw.TranscriptionModel),
		SpeechModel:          strings.TrimSpace(raw.SpeechModel),
		SpeechVoice:          strings.TrimSpace(raw.SpeechVoice),
		MaxCompletionTokens:  raw.MaxCompletionTokens,
		CatalogFile:          strings.TrimSpace(raw.CatalogFile),
		AudioDir:             strings.TrimSpace(raw.AudioDir),
		RequestTimeout:       time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		TranscriptionTimeout: time.Duration(raw.TranscriptionTimeoutSeconds) * time.Second,
		GenerationTimeout:    time.Duration(raw.GenerationTimeoutSeconds) * time.Second,
		SynthesisTimeout:     time.Duration(raw.SynthesisTimeoutSeconds) * time.Second,
		MaxUploadBytes:       raw.MaxUploadBytes,
		LogLevel:             strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.OpenRouterAPIKey == "" {
		return errors.New("OPENROUTER_API_KEY must be set")
	}
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.OpenRouterBaseURL == "" {
		return errors.New("OPENROUTER_BASE_URL must not be empty")
	}
	if c.OpenAIBaseURL == "" {
		return errors.New("OPENAI_BASE_URL must not be empty")
	}
	if c.TranscriptionModel == "" {
		return errors.New("TRANSCRIPTION_MODEL must not be empty")
	}
	if c.SpeechModel == "" {
		return errors.New("SPEECH_MODEL must not be empty")
	}
	if c.SpeechVoice == "" {
		return errors.New("SPEECH_VOICE must not be empty")
	}
	if c.MaxCompletionTokens <= 0 {
		return errors.New("MAX_COMPLETION_TOKENS must be > 0")
	}
	if c.AudioDir == "" {
		return errors.New("AUDIO_DIR must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.TranscriptionTimeout <= 0 {
		return errors.New("TRANSCRIPTION_TIMEOUT_SECONDS must be > 0")
	}
	if c.GenerationTimeout <= 0 {
		return errors.New("GENERATION_TIMEOUT_SECONDS must be > 0")
	}
	if c.SynthesisTimeout <= 0 {
		return errors.New("SYNTHESIS_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	return nil
}

// SpeechEnabled reports whether the transcription/synthesis credential is set.
func (c Config) SpeechEnabled() bool { return c.OpenAIAPIKey != "" }

// OpenRouterHeaders returns the optional attribution headers OpenRouter uses
// to rank apps. Both are omitted when unset.
func (c Config) OpenRouterHeaders() map[string]string {
	headers := map[string]string{}
	if c.OpenRouterAppURL != "" {
		headers["HTTP-Referer"] = c.OpenRouterAppURL
	}
	if c.OpenRouterAppTitle != "" {
		headers["X-Title"] = c.OpenRouterAppTitle
	}
	return headers
}
