package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"polyglot/internal/catalog"
	"polyglot/internal/generation"
	"polyglot/internal/synthesis"
	"polyglot/internal/transcription"
	"polyglot/internal/upstream/openai"
)

type fakeTranscriber struct {
	result transcription.Result
	calls  int
	path   string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, audioPath string) transcription.Result {
	f.calls++
	f.path = audioPath
	return f.result
}

type fakeGenerator struct {
	result generation.Result
	err    error
	calls  int
	input  generation.Input
}

func (f *fakeGenerator) Generate(_ context.Context, in generation.Input) (generation.Result, error) {
	f.calls++
	f.input = in
	return f.result, f.err
}

type fakeSynthesizer struct {
	enabled  bool
	artifact *synthesis.Artifact
	calls    int
	text     string
}

func (f *fakeSynthesizer) Enabled() bool { return f.enabled }

func (f *fakeSynthesizer) Synthesize(_ context.Context, text string) *synthesis.Artifact {
	f.calls++
	f.text = text
	return f.artifact
}

func TestRunWithoutInputMakesNoCalls(t *testing.T) {
	tr := &fakeTranscriber{}
	gen := &fakeGenerator{}
	syn := &fakeSynthesizer{enabled: true}
	svc := New(tr, gen, syn)

	for _, text := range []string{"", "   \t\n"} {
		res, err := svc.Run(context.Background(), Request{Text: text, TargetLanguage: "English", ModelLabel: "DeepSeek Llama 70B"})
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if res.Transcript != "" || res.Reply != "" || res.Audio != nil {
			t.Fatalf("expected empty result, got %+v", res)
		}
		if !res.EmptyInput {
			t.Fatal("expected EmptyInput to be reported")
		}
	}
	if tr.calls+gen.calls+syn.calls != 0 {
		t.Fatalf("expected zero backend calls, got transcribe=%d generate=%d synthesize=%d", tr.calls, gen.calls, syn.calls)
	}
}

func TestRunTypedTextWinsOverTranscript(t *testing.T) {
	transcripts := []transcription.Result{
		{Status: transcription.StatusOK, Text: "spoken question"},
		{Status: transcription.StatusOK, Text: ""},
		{Status: transcription.StatusFailed, Err: errors.New("boom")},
		{Status: transcription.StatusSkipped},
	}
	for _, tr := range transcripts {
		gen := &fakeGenerator{result: generation.Result{Reply: "reply"}}
		svc := New(&fakeTranscriber{result: tr}, gen, &fakeSynthesizer{})

		if _, err := svc.Run(context.Background(), Request{AudioPath: "/tmp/q.wav", Text: "typed question", TargetLanguage: "Spanish"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if gen.input.Text != "typed question" {
			t.Fatalf("transcript %+v: expected typed text to win, got %q", tr, gen.input.Text)
		}
	}
}

func TestRunPassesTypedTextVerbatim(t *testing.T) {
	gen := &fakeGenerator{result: generation.Result{Reply: "hola"}}
	svc := New(&fakeTranscriber{}, gen, &fakeSynthesizer{})

	if _, err := svc.Run(context.Background(), Request{Text: "  hello\n", TargetLanguage: "Spanish"}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gen.input.Text != "  hello\n" {
		t.Fatalf("expected typed text unchanged, got %q", gen.input.Text)
	}
}

func TestRunUsesTranscriptWhenTypedTextEmpty(t *testing.T) {
	tr := &fakeTranscriber{result: transcription.Result{Status: transcription.StatusOK, Text: "¿Qué hora es?"}}
	gen := &fakeGenerator{result: generation.Result{Reply: "It is noon.", ModelID: "m"}}
	svc := New(tr, gen, &fakeSynthesizer{})

	res, err := svc.Run(context.Background(), Request{AudioPath: "/tmp/q.wav", Text: " ", TargetLanguage: "English", ModelLabel: "Llama-3 70B"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if tr.path != "/tmp/q.wav" {
		t.Fatalf("unexpected audio path: %q", tr.path)
	}
	if gen.input.Text != "¿Qué hora es?" || gen.input.Language != "English" || gen.input.ModelLabel != "Llama-3 70B" {
		t.Fatalf("unexpected generation input: %+v", gen.input)
	}
	if res.Transcript != "¿Qué hora es?" || res.Reply != "It is noon." {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.TranscriptionStatus != transcription.StatusOK {
		t.Fatalf("unexpected transcription status: %q", res.TranscriptionStatus)
	}
}

func TestRunFailedTranscriptionDoesNotLeakIntoGeneration(t *testing.T) {
	boom := errors.New("401 unauthorized")
	tr := &fakeTranscriber{result: transcription.Result{Status: transcription.StatusFailed, Err: boom}}
	gen := &fakeGenerator{}
	svc := New(tr, gen, &fakeSynthesizer{enabled: true})

	res, err := svc.Run(context.Background(), Request{AudioPath: "/tmp/q.wav", TargetLanguage: "German"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no generation call, got %d", gen.calls)
	}
	if !res.EmptyInput || res.Transcript != "" {
		t.Fatalf("expected empty-input short circuit, got %+v", res)
	}
	if res.TranscriptionStatus != transcription.StatusFailed || !errors.Is(res.TranscriptionError, boom) {
		t.Fatalf("expected transcription failure diagnostics, got %+v", res)
	}
}

func TestRunGenerationErrorPropagates(t *testing.T) {
	upstream := &openai.Error{Endpoint: openai.EndpointChatCompletions, StatusCode: 502}
	syn := &fakeSynthesizer{enabled: true}
	svc := New(&fakeTranscriber{}, &fakeGenerator{err: upstream}, syn)

	res, err := svc.Run(context.Background(), Request{Text: "hi", TargetLanguage: "French"})
	var upErr *openai.Error
	if !errors.As(err, &upErr) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if res.Reply != "" || res.Audio != nil {
		t.Fatalf("expected zero result on error, got %+v", res)
	}
	if syn.calls != 0 {
		t.Fatalf("expected no synthesis call, got %d", syn.calls)
	}
}

func TestRunSynthesizesReply(t *testing.T) {
	art := &synthesis.Artifact{ID: "id", Path: "tmp/audiofile_id.mp3"}
	syn := &fakeSynthesizer{enabled: true, artifact: art}
	gen := &fakeGenerator{result: generation.Result{Reply: "Guten Morgen"}}
	svc := New(&fakeTranscriber{}, gen, syn)

	res, err := svc.Run(context.Background(), Request{Text: "good morning", TargetLanguage: "German"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if syn.text != "Guten Morgen" {
		t.Fatalf("unexpected synthesis text: %q", syn.text)
	}
	if res.Audio != art || res.SynthesisStatus != SynthesisOK {
		t.Fatalf("unexpected audio result: %+v", res)
	}
}

func TestRunSynthesisFailureDegradesToNoAudio(t *testing.T) {
	syn := &fakeSynthesizer{enabled: true}
	svc := New(&fakeTranscriber{}, &fakeGenerator{result: generation.Result{Reply: "Bonjour"}}, syn)

	res, err := svc.Run(context.Background(), Request{Text: "hello", TargetLanguage: "French"})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Reply != "Bonjour" || res.Audio != nil || res.SynthesisStatus != SynthesisFailed {
		t.Fatalf("unexpected result: %+v", res)
	}
}

// Wires the real services with a disabled synthesis credential and a fake chat
// backend, mirroring the German "good morning" scenario.
func TestRunEndToEndWithoutSynthesisCredential(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	chat := &fakeChat{resp: openai.ChatCompletionResponse{Content: "Guten Morgen!"}}
	speech := &fakeSpeech{}

	svc := New(
		transcription.New(nil, false, "", 0, logger),
		generation.New(chat, catalog.Default(), generation.Options{}),
		synthesis.New(speech, synthesis.NewStore(t.TempDir()), false, synthesis.Options{}, logger),
	)

	res, err := svc.Run(context.Background(), Request{
		Text:           "Translate 'good morning' to German",
		TargetLanguage: "German",
		ModelLabel:     "Llama-4 Scout",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Transcript != "" || res.Reply == "" || res.Audio != nil {
		t.Fatalf("unexpected result: %+v", res)
	}
	if chat.request.Model != "meta-llama/llama-4-scout:free" {
		t.Fatalf("unexpected model: %q", chat.request.Model)
	}
	if speech.calls != 0 {
		t.Fatalf("expected no speech call, got %d", speech.calls)
	}
}

type fakeChat struct {
	request openai.ChatCompletionRequest
	resp    openai.ChatCompletionResponse
}

func (f *fakeChat) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.request = req
	return f.resp, nil
}

type fakeSpeech struct{ calls int }

func (f *fakeSpeech) Speech(context.Context, openai.SpeechRequest, io.Writer) (int64, error) {
	f.calls++
	return 0, errors.New("unexpected")
}

func TestRunEmptyReplySkipsSynthesis(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":""}}]}`)
	}))
	defer ts.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	speech := &fakeSpeech{}
	svc := New(
		transcription.New(nil, false, "", 0, logger),
		generation.New(openai.New(ts.URL, "k", ts.Client()), catalog.Default(), generation.Options{}),
		synthesis.New(speech, synthesis.NewStore(t.TempDir()), true, synthesis.Options{}, logger),
	)

	res, err := svc.Run(context.Background(), Request{
		Text:           "Explain the subjunctive",
		TargetLanguage: "Spanish",
		ModelLabel:     "DeepSeek Llama 70B",
	})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Transcript != "" || res.Reply != "" || res.Audio != nil {
		t.Fatalf("expected empty outputs, got %+v", res)
	}
	if res.SynthesisStatus != SynthesisSkipped || res.ModelID != "deepseek-r1-distill-llama-70b:free" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if speech.calls != 0 {
		t.Fatalf("expected no speech call, got %d", speech.calls)
	}
}
