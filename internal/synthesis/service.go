package synthesis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"polyglot/internal/upstream/openai"
)

const (
	DefaultModel   = "gpt-4o-mini-tts"
	DefaultVoice   = "alloy"
	responseFormat = "mp3"
)

type Client interface {
	Speech(ctx context.Context, req openai.SpeechRequest, dst io.Writer) (int64, error)
}

type Service struct {
	client  Client
	store   *Store
	enabled bool
	model   string
	voice   string
	timeout time.Duration
	logger  *slog.Logger
}

type Options struct {
	Model   string
	Voice   string
	Timeout time.Duration
}

// New builds a synthesis service. When enabled is false (no credential)
// Synthesize always returns nil without any I/O.
func New(client Client, store *Store, enabled bool, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewStore("")
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = DefaultModel
	}
	voice := strings.TrimSpace(opts.Voice)
	if voice == "" {
		voice = DefaultVoice
	}
	return &Service{
		client:  client,
		store:   store,
		enabled: enabled && client != nil,
		model:   model,
		voice:   voice,
		timeout: opts.Timeout,
		logger:  logger,
	}
}

func (s *Service) Enabled() bool { return s.enabled }

// Synthesize turns text into an mp3 artifact. Failures are logged and
// reported as nil; they never abort the caller.
func (s *Service) Synthesize(ctx context.Context, text string) *Artifact {
	if strings.TrimSpace(text) == "" || !s.enabled {
		return nil
	}

	artifact, err := s.synthesize(ctx, text)
	if err != nil {
		s.logger.Error("speech synthesis failed", "model", s.model, "voice", s.voice, "error", err)
		return nil
	}
	s.logger.Info("speech synthesized", "artifact_id", artifact.ID, "bytes", artifact.Size)
	return artifact
}

func (s *Service) synthesize(ctx context.Context, text string) (*Artifact, error) {
	f, artifact, err := s.store.Create()
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	n, err := s.client.Speech(ctx, openai.SpeechRequest{
		Model:          s.model,
		Voice:          s.voice,
		Input:          text,
		ResponseFormat: responseFormat,
	}, f)
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = fmt.Errorf("close audio file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(artifact.Path)
		return nil, err
	}

	artifact.Size = n
	return &artifact, nil
}
