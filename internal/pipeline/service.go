package pipeline

import (
	"context"
	"strings"
	"time"

	"polyglot/internal/generation"
	"polyglot/internal/synthesis"
	"polyglot/internal/transcription"
)

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) transcription.Result
}

type Generator interface {
	Generate(ctx context.Context, in generation.Input) (generation.Result, error)
}

type Synthesizer interface {
	Enabled() bool
	Synthesize(ctx context.Context, text string) *synthesis.Artifact
}

type SynthesisStatus string

const (
	SynthesisSkipped SynthesisStatus = "skipped"
	SynthesisOK      SynthesisStatus = "ok"
	SynthesisFailed  SynthesisStatus = "failed"
)

type Service struct {
	transcriber Transcriber
	generator   Generator
	synthesizer Synthesizer
}

// Request is one stateless turn. AudioPath and Text are both optional.
type Request struct {
	AudioPath      string
	Text           string
	TargetLanguage string
	ModelLabel     string
}

type Timings struct {
	Transcription time.Duration
	Generation    time.Duration
	Synthesis     time.Duration
	Total         time.Duration
}

type Result struct {
	Transcript string
	Reply      string
	Audio      *synthesis.Artifact

	// EmptyInput reports that neither typed text nor a transcript was
	// available, so no generation was attempted.
	EmptyInput          bool
	TranscriptionStatus transcription.Status
	TranscriptionError  error
	SynthesisStatus     SynthesisStatus
	ModelID             string
	Usage               *generation.TokenUsage
	Timings             Timings
}

func New(transcriber Transcriber, generator Generator, synthesizer Synthesizer) *Service {
	return &Service{
		transcriber: transcriber,
		generator:   generator,
		synthesizer: synthesizer,
	}
}

// EffectiveInput applies the precedence rule: typed text that is not blank
// wins and is passed on verbatim, otherwise a successful transcript is used.
func EffectiveInput(typed string, transcript transcription.Result) string {
	if strings.TrimSpace(typed) != "" {
		return typed
	}
	if transcript.Status == transcription.StatusOK && strings.TrimSpace(transcript.Text) != "" {
		return transcript.Text
	}
	return ""
}

// Run executes STT -> LLM -> TTS. Only a generation failure is returned as an
// error; transcription and synthesis failures degrade the result.
func (s *Service) Run(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	result := Result{
		TranscriptionStatus: transcription.StatusSkipped,
		SynthesisStatus:     SynthesisSkipped,
	}

	transcript := transcription.Result{Status: transcription.StatusSkipped}
	if req.AudioPath != "" {
		transcriptionStarted := time.Now()
		transcript = s.transcriber.Transcribe(ctx, req.AudioPath)
		result.Timings.Transcription = time.Since(transcriptionStarted)
		result.TranscriptionStatus = transcript.Status
		result.TranscriptionError = transcript.Err
		if transcript.Status == transcription.StatusOK {
			result.Transcript = transcript.Text
		}
	}

	input := EffectiveInput(req.Text, transcript)
	if input == "" {
		result.EmptyInput = true
		result.Timings.Total = time.Since(started)
		return result, nil
	}

	generationStarted := time.Now()
	generated, err := s.generator.Generate(ctx, generation.Input{
		Text:       input,
		ModelLabel: req.ModelLabel,
		Language:   req.TargetLanguage,
	})
	result.Timings.Generation = time.Since(generationStarted)
	if err != nil {
		return Result{}, err
	}
	result.Reply = generated.Reply
	result.ModelID = generated.ModelID
	result.Usage = generated.Usage

	if result.Reply != "" && s.synthesizer.Enabled() {
		synthesisStarted := time.Now()
		result.Audio = s.synthesizer.Synthesize(ctx, result.Reply)
		result.Timings.Synthesis = time.Since(synthesisStarted)
		if result.Audio != nil {
			result.SynthesisStatus = SynthesisOK
		} else {
			result.SynthesisStatus = SynthesisFailed
		}
	}

	result.Timings.Total = time.Since(started)
	return result, nil
}
