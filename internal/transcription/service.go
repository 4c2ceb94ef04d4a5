package transcription

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const DefaultModel = "gpt-4o-mini-transcribe"

type Status string

const (
	StatusSkipped Status = "skipped"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

type Client interface {
	Transcribe(ctx context.Context, file io.Reader, fileName, model string) (string, error)
}

// Result separates a real transcript from a failed attempt so that error
// text never reaches the language model.
type Result struct {
	Text   string
	Status Status
	Err    error
}

type Service struct {
	client  Client
	enabled bool
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// New builds a transcription service. When enabled is false (no credential)
// every call is skipped without touching the file or the network.
func New(client Client, enabled bool, model string, timeout time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Service{
		client:  client,
		enabled: enabled && client != nil,
		model:   model,
		timeout: timeout,
		logger:  logger,
	}
}

func (s *Service) Enabled() bool { return s.enabled }

func (s *Service) Transcribe(ctx context.Context, audioPath string) Result {
	if audioPath == "" || !s.enabled {
		return Result{Status: StatusSkipped}
	}

	text, err := s.transcribeFile(ctx, audioPath)
	if err != nil {
		s.logger.Warn("transcription failed", "file", filepath.Base(audioPath), "model", s.model, "error", err)
		return Result{Status: StatusFailed, Err: err}
	}
	s.logger.Debug("transcription complete", "model", s.model, "text_length", len(text))
	return Result{Text: text, Status: StatusOK}
}

func (s *Service) transcribeFile(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio: %w", err)
	}
	defer func() { _ = file.Close() }()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.client.Transcribe(ctx, file, filepath.Base(audioPath), s.model)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
