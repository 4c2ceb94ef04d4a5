package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"polyglot/internal/upstream/openai"
)

// DefaultMaxCompletionTokens caps reply length.
const DefaultMaxCompletionTokens = 1024

const instructionPrefix = "You are a polyglot assistant, aware of language details and how to teach each one. Provide your response in "

type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type ModelResolver interface {
	Resolve(label string) string
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type Input struct {
	Text       string
	ModelLabel string
	Language   string
}

type Result struct {
	Reply   string
	ModelID string
	Usage   *TokenUsage
}

type Options struct {
	MaxCompletionTokens int
	Timeout             time.Duration
	// Headers are sent with every completion request, e.g. OpenRouter
	// attribution headers. Empty by default.
	Headers map[string]string
	// Body holds backend-specific payload fields. Empty by default.
	Body map[string]any
}

type Service struct {
	client    ChatClient
	models    ModelResolver
	maxTokens int
	timeout   time.Duration
	headers   map[string]string
	body      map[string]any
}

func New(client ChatClient, models ModelResolver, opts Options) *Service {
	maxTokens := opts.MaxCompletionTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxCompletionTokens
	}
	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}
	body := make(map[string]any, len(opts.Body))
	for k, v := range opts.Body {
		body[k] = v
	}
	return &Service{
		client:    client,
		models:    models,
		maxTokens: maxTokens,
		timeout:   opts.Timeout,
		headers:   headers,
		body:      body,
	}
}

// BuildInstruction returns the system instruction for a target language. The
// language is upper-cased and not validated.
func BuildInstruction(language string) string {
	return instructionPrefix + strings.ToUpper(language)
}

// Generate asks the chat backend for a reply. Backend failures are returned
// to the caller unchanged apart from wrapping.
func (s *Service) Generate(ctx context.Context, in Input) (Result, error) {
	modelID := s.models.Resolve(in.ModelLabel)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	chatResp, err := s.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: modelID,
		Messages: []openai.ChatMessage{
			{Role: "system", Content: BuildInstruction(in.Language)},
			{Role: "user", Content: in.Text},
		},
		MaxCompletionTokens: s.maxTokens,
		ExtraHeaders:        s.headers,
		ExtraBody:           s.body,
	})
	if err != nil {
		return Result{}, fmt.Errorf("generate reply with %s: %w", modelID, err)
	}

	result := Result{Reply: strings.TrimSpace(chatResp.Content), ModelID: modelID}
	if chatResp.Usage != nil {
		result.Usage = &TokenUsage{
			PromptTokens:     chatResp.Usage.PromptTokens,
			CompletionTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:      chatResp.Usage.TotalTokens,
		}
	}
	return result, nil
}
