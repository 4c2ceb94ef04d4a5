package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"time"

	"polyglot/internal/catalog"
	"polyglot/internal/config"
	"polyglot/internal/generation"
	"polyglot/internal/observability"
	"polyglot/internal/pipeline"
	"polyglot/internal/synthesis"
	"polyglot/internal/transcription"
	"polyglot/internal/upstream/openai"

	"github.com/joho/godotenv"
)

const (
	BackendOpenRouter = "openrouter"
	BackendOpenAI     = "openai"
)

// LoadDotEnv loads a .env file (or the given files) into the process
// environment. A missing file is fine; a malformed one is an error.
func LoadDotEnv(filenames ...string) error {
	if err := godotenv.Load(filenames...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Components is the wired service graph shared by the API server and the CLI.
type Components struct {
	Catalog    *catalog.Catalog
	OpenRouter *openai.Client
	OpenAI     *openai.Client
	Store      *synthesis.Store
	Pipeline   *pipeline.Service
}

// Build wires both backends, the catalog and the pipeline from cfg. A nil
// metrics disables upstream observation.
func Build(cfg config.Config, logger *slog.Logger, metrics *observability.Metrics) (*Components, error) {
	models := catalog.Default()
	if cfg.CatalogFile != "" {
		loaded, err := catalog.Load(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		models = loaded
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: newTransport()}
	openRouter := openai.New(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, httpClient,
		openai.WithObserver(metrics.UpstreamObserver(BackendOpenRouter)))
	openAI := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, httpClient,
		openai.WithObserver(metrics.UpstreamObserver(BackendOpenAI)))

	store := synthesis.NewStore(cfg.AudioDir)
	transcriber := transcription.New(openAI, cfg.SpeechEnabled(), cfg.TranscriptionModel, cfg.TranscriptionTimeout, logger)
	generator := generation.New(openRouter, models, generation.Options{
		MaxCompletionTokens: cfg.MaxCompletionTokens,
		Timeout:             cfg.GenerationTimeout,
		Headers:             cfg.OpenRouterHeaders(),
	})
	synthesizer := synthesis.New(openAI, store, cfg.SpeechEnabled(), synthesis.Options{
		Model:   cfg.SpeechModel,
		Voice:   cfg.SpeechVoice,
		Timeout: cfg.SynthesisTimeout,
	}, logger)

	if !cfg.SpeechEnabled() {
		logger.Warn("OPENAI_API_KEY not set; transcription and speech synthesis disabled")
	}

	return &Components{
		Catalog:    models,
		OpenRouter: openRouter,
		OpenAI:     openAI,
		Store:      store,
		Pipeline:   pipeline.New(transcriber, generator, synthesizer),
	}, nil
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// NewLogger builds the text logger used by both binaries.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slogLevel}))
}
