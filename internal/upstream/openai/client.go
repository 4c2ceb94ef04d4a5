package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	EndpointTranscriptions  = "audio_transcriptions"
	EndpointSpeech          = "audio_speech"
	EndpointChatCompletions = "chat_completions"
	EndpointModels          = "models"
)

type ObserverFunc func(endpoint string, status int, duration time.Duration)

type Option func(*Client)

// Client talks to any OpenAI-compatible REST backend (OpenAI, OpenRouter).
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	observer   ObserverFunc
}

type Error struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *Error) Error() string {
	if e.Endpoint == "" {
		return fmt.Sprintf("upstream request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("upstream %s request failed with status %d", e.Endpoint, e.StatusCode)
}

type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

type ChatMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`

	// ExtraHeaders and ExtraBody carry backend-specific options. ExtraBody keys
	// are merged into the JSON payload and never override the typed fields.
	ExtraHeaders map[string]string `json:"-"`
	ExtraBody    map[string]any    `json:"-"`
}

type ChatCompletionResponse struct {
	Content string
	Usage   *TokenUsage
}

type SpeechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func WithObserver(observer ObserverFunc) Option {
	return func(c *Client) {
		c.observer = observer
	}
}

func New(baseURL, apiKey string, httpClient *http.Client, opts ...Option) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: httpClient,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) Transcribe(ctx context.Context, file io.Reader, fileName, model string) (text string, err error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe(EndpointTranscriptions, statusCode, time.Since(started)) }()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("model", model); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/transcriptions", bytes.NewReader(body.Bytes()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Endpoint: EndpointTranscriptions, StatusCode: resp.StatusCode, Body: truncateBody(string(respBody))}
	}

	return parseTranscript(respBody)
}

func (c *Client) ChatCompletion(ctx context.Context, reqPayload ChatCompletionRequest) (ChatCompletionResponse, error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe(EndpointChatCompletions, statusCode, time.Since(started)) }()

	payload, err := marshalChatRequest(reqPayload)
	if err != nil {
		return ChatCompletionResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return ChatCompletionResponse{}, err
	}
	for key, value := range reqPayload.ExtraHeaders {
		req.Header.Set(key, value)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ChatCompletionResponse{}, err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ChatCompletionResponse{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return ChatCompletionResponse{}, &Error{Endpoint: EndpointChatCompletions, StatusCode: resp.StatusCode, Body: truncateBody(string(respBody))}
	}

	return parseChatCompletion(respBody)
}

// Speech streams synthesized audio into dst and returns the number of bytes
// written. Nothing is written to dst unless the backend answers 200.
func (c *Client) Speech(ctx context.Context, reqPayload SpeechRequest, dst io.Writer) (int64, error) {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe(EndpointSpeech, statusCode, time.Since(started)) }()

	payload, err := json.Marshal(reqPayload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))
		return 0, &Error{Endpoint: EndpointSpeech, StatusCode: resp.StatusCode, Body: truncateBody(string(body))}
	}

	n, err := io.Copy(dst, resp.Body)
	if err != nil {
		return n, fmt.Errorf("stream speech: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("empty speech response")
	}
	return n, nil
}

func (c *Client) CheckModels(ctx context.Context) error {
	started := time.Now()
	statusCode := 0
	defer func() { c.observe(EndpointModels, statusCode, time.Since(started)) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	statusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &Error{Endpoint: EndpointModels, StatusCode: resp.StatusCode, Body: truncateBody(string(body))}
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer(endpoint, status, duration)
	}
}

func marshalChatRequest(req ChatCompletionRequest) ([]byte, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if len(req.ExtraBody) == 0 {
		return payload, nil
	}

	merged := make(map[string]any, len(req.ExtraBody)+3)
	for key, value := range req.ExtraBody {
		merged[key] = value
	}
	var typed map[string]any
	if err := json.Unmarshal(payload, &typed); err != nil {
		return nil, err
	}
	for key, value := range typed {
		merged[key] = value
	}
	return json.Marshal(merged)
}

func parseTranscript(data []byte) (string, error) {
	var parsed struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if parsed.Text == nil {
			return "", fmt.Errorf("invalid transcription response")
		}
		// Silence legitimately transcribes to "".
		return *parsed.Text, nil
	}

	plainText := strings.TrimSpace(joinLines(string(data)))
	if plainText == "" {
		return "", fmt.Errorf("invalid transcription response")
	}
	return plainText, nil
}

func parseChatCompletion(data []byte) (ChatCompletionResponse, error) {
	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage *struct {
			PromptTokens     int `json:"prompt_tokens"`
			CompletionTokens int `json:"completion_tokens"`
			TotalTokens      int `json:"total_tokens"`
		} `json:"usage,omitempty"`
	}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return ChatCompletionResponse{}, fmt.Errorf("invalid chat completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return ChatCompletionResponse{}, fmt.Errorf("missing choices")
	}
	// An empty or null content is a valid, if unhelpful, reply.
	resp := ChatCompletionResponse{Content: parsed.Choices[0].Message.Content}
	if parsed.Usage != nil {
		resp.Usage = &TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		}
	}
	return resp, nil
}

func joinLines(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r'
	})
	return strings.Join(parts, " ")
}

func truncateBody(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= 4096 {
		return s
	}
	return s[:4096] + "..."
}
