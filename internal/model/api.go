package model

type APIError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

type HealthResponse struct {
	OK bool `json:"ok"`
}

type ReadyResponse struct {
	OK          bool   `json:"ok"`
	ServiceName string `json:"service_name,omitempty"`
}

type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ModelEntry struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

type ModelsResponse struct {
	DefaultModel string       `json:"default_model"`
	DefaultLabel string       `json:"default_label"`
	Models       []ModelEntry `json:"models"`
}

type LanguageEntry struct {
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

type LanguagesResponse struct {
	Default   string          `json:"default"`
	Languages []LanguageEntry `json:"languages"`
}

type TranslateTimings struct {
	Transcription int64 `json:"transcription"`
	Generation    int64 `json:"generation"`
	Synthesis     int64 `json:"synthesis"`
	Total         int64 `json:"total"`
}

type TranslateResponse struct {
	Transcript          string           `json:"transcript"`
	Reply               string           `json:"reply"`
	AudioURL            string           `json:"audio_url,omitempty"`
	ModelID             string           `json:"model_id,omitempty"`
	TargetLanguage      string           `json:"target_language"`
	TranscriptionStatus string           `json:"transcription_status"`
	SynthesisStatus     string           `json:"synthesis_status"`
	Usage               *TokenUsage      `json:"usage,omitempty"`
	TimingsMS           TranslateTimings `json:"timings_ms"`
}
