package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"polyglot/internal/catalog"
	"polyglot/internal/config"
	"polyglot/internal/generation"
	"polyglot/internal/model"
	"polyglot/internal/pipeline"
	"polyglot/internal/synthesis"
	"polyglot/internal/transcription"
	"polyglot/internal/upstream/openai"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

type PipelineService interface {
	Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

type AudioStore interface {
	Open(id string) (*os.File, error)
}

type UpstreamChecker interface {
	CheckModels(ctx context.Context) error
}

type MetricsObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
	IncPipelineDegraded(stage string)
	IncPipelineEmptyInput()
}

type Dependencies struct {
	Pipeline       PipelineService
	Catalog        *catalog.Catalog
	Audio          AudioStore
	Upstream       UpstreamChecker
	Metrics        MetricsObserver
	MetricsHandler http.Handler
}

type server struct {
	cfg          config.Config
	logger       *slog.Logger
	pipeline     PipelineService
	catalog      *catalog.Catalog
	audio        AudioStore
	upstream     UpstreamChecker
	metrics      MetricsObserver
	metricsRoute http.Handler
}

type ctxKey string

const (
	requestIDHeader  = "X-Request-Id"
	requestIDContext = ctxKey("request_id")
	audioRoutePrefix = "/v1/audio/"
)

var uploadExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

func NewServer(cfg config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Pipeline == nil || deps.Catalog == nil || deps.Audio == nil || deps.Upstream == nil {
		panic("httpapi: all dependencies are required")
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		pipeline:     deps.Pipeline,
		catalog:      deps.Catalog,
		audio:        deps.Audio,
		upstream:     deps.Upstream,
		metrics:      deps.Metrics,
		metricsRoute: deps.MetricsHandler,
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not_found", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	if s.metricsRoute != nil {
		r.Handle("/metrics", s.metricsRoute)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", s.handleModels)
		r.Get("/languages", s.handleLanguages)
		r.Post("/translate", s.handleTranslate)
		r.Get("/audio/{id}", s.handleAudio)
	})

	return r
}

func (s *server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{OK: true})
}

func (s *server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.upstream.CheckModels(ctx); err != nil {
		s.writeError(w, r, http.StatusServiceUnavailable, "not_ready", "chat backend check failed", detailsForError(err))
		return
	}
	writeJSON(w, http.StatusOK, model.ReadyResponse{OK: true, ServiceName: "polyglot"})
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	models := s.catalog.Models()
	resp := model.ModelsResponse{
		DefaultModel: s.catalog.DefaultModelID(),
		DefaultLabel: catalog.DefaultModelLabel,
		Models:       make([]model.ModelEntry, 0, len(models)),
	}
	for _, m := range models {
		resp.Models = append(resp.Models, model.ModelEntry{Label: m.Label, ID: s.catalog.Resolve(m.Label)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	languages := s.catalog.Languages()
	resp := model.LanguagesResponse{
		Default:   catalog.DefaultLanguage,
		Languages: make([]model.LanguageEntry, 0, len(languages)),
	}
	for _, l := range languages {
		resp.Languages = append(resp.Languages, model.LanguageEntry{Name: l.Name, Code: l.Code})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	err := r.ParseMultipartForm(minInt64(s.cfg.MaxUploadBytes, 8<<20))
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		s.handleFormReadError(w, r, err)
		return
	}
	defer cleanupMultipartForm(r.MultipartForm)

	language := catalog.DefaultLanguage
	if raw := strings.TrimSpace(r.FormValue("target_language")); raw != "" {
		l, ok := s.catalog.Language(raw)
		if !ok {
			s.writeError(w, r, http.StatusBadRequest, "invalid_request", fmt.Sprintf("unsupported target_language %q", raw), nil)
			return
		}
		language = l.Name
	}
	modelLabel := strings.TrimSpace(r.FormValue("model"))
	if modelLabel == "" {
		modelLabel = catalog.DefaultModelLabel
	}

	audioPath := ""
	if r.MultipartForm != nil {
		file, header, err := r.FormFile("file")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			s.handleFormReadError(w, r, err)
			return
		default:
			audioPath, err = spoolUpload(file, header)
			_ = file.Close()
			if err != nil {
				s.writeError(w, r, http.StatusInternalServerError, "internal_error", "could not store upload", nil)
				return
			}
			defer func() { _ = os.Remove(audioPath) }()
		}
	}

	result, err := s.pipeline.Run(r.Context(), pipeline.Request{
		AudioPath:      audioPath,
		Text:           r.FormValue("text"),
		TargetLanguage: language,
		ModelLabel:     modelLabel,
	})
	if err != nil {
		s.writeMappedError(w, r, err)
		return
	}
	s.recordOutcome(result)

	resp := model.TranslateResponse{
		Transcript:          result.Transcript,
		Reply:               result.Reply,
		ModelID:             result.ModelID,
		TargetLanguage:      language,
		TranscriptionStatus: string(result.TranscriptionStatus),
		SynthesisStatus:     string(result.SynthesisStatus),
		Usage:               toModelTokenUsage(result.Usage),
		TimingsMS: model.TranslateTimings{
			Transcription: result.Timings.Transcription.Milliseconds(),
			Generation:    result.Timings.Generation.Milliseconds(),
			Synthesis:     result.Timings.Synthesis.Milliseconds(),
			Total:         result.Timings.Total.Milliseconds(),
		},
	}
	if result.Audio != nil {
		resp.AudioURL = audioRoutePrefix + result.Audio.ID
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleAudio(w http.ResponseWriter, r *http.Request) {
	f, err := s.audio.Open(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, synthesis.ErrNotFound) {
			s.writeError(w, r, http.StatusNotFound, "not_found", "audio not found", nil)
			return
		}
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "could not open audio", nil)
		return
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, "internal_error", "could not open audio", nil)
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	http.ServeContent(w, r, "reply.mp3", info.ModTime(), f)
}

func (s *server) recordOutcome(result pipeline.Result) {
	if s.metrics == nil {
		return
	}
	if result.TranscriptionStatus == transcription.StatusFailed {
		s.metrics.IncPipelineDegraded("transcription")
	}
	if result.SynthesisStatus == pipeline.SynthesisFailed {
		s.metrics.IncPipelineDegraded("synthesis")
	}
	if result.EmptyInput {
		s.metrics.IncPipelineEmptyInput()
	}
}

// spoolUpload copies the uploaded audio to its own temp file. The original
// extension is kept because transcription backends sniff the format from it.
func spoolUpload(file multipart.File, header *multipart.FileHeader) (string, error) {
	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !uploadExt.MatchString(ext) {
		ext = ".wav"
	}
	tmp, err := os.CreateTemp("", "polyglot-upload-*"+ext)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}

func (s *server) handleFormReadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, "request_too_large", fmt.Sprintf("request exceeds %d bytes", s.cfg.MaxUploadBytes), nil)
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "invalid_request", "invalid form data", nil)
}

func (s *server) writeMappedError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := "request failed"
	details := detailsForError(err)

	var upstreamErr *openai.Error
	switch {
	case errors.As(err, &upstreamErr):
		status = http.StatusBadGateway
		code = "upstream_request_failed"
		message = "language model request failed"
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		code = "timeout"
		message = "request timed out"
	case errors.Is(err, context.Canceled):
		status = 499
		code = "canceled"
		message = "request canceled"
	}

	s.logger.Error("pipeline failed", "request_id", requestIDFromContext(r.Context()), "status", status, "error", err)
	s.writeError(w, r, status, code, message, details)
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details map[string]any) {
	if rid := requestIDFromContext(r.Context()); rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, status, model.ErrorResponse{
		Error:     model.APIError{Code: code, Message: message, Details: details},
		RequestID: requestIDFromContext(r.Context()),
	})
}

func (s *server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = newRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContext, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}

		s.logger.Info("http_request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "request_id", requestIDFromContext(r.Context()), "panic", rec)
				s.writeError(w, r, http.StatusInternalServerError, "internal_error", "internal server error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func cleanupMultipartForm(form *multipart.Form) {
	if form != nil {
		_ = form.RemoveAll()
	}
}

func requestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDContext).(string)
	return value
}

func newRequestID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func toModelTokenUsage(u *generation.TokenUsage) *model.TokenUsage {
	if u == nil {
		return nil
	}
	return &model.TokenUsage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
}

func detailsForError(err error) map[string]any {
	if err == nil {
		return nil
	}
	details := map[string]any{"error": err.Error()}
	var upstreamErr *openai.Error
	if errors.As(err, &upstreamErr) {
		details["upstream_status"] = upstreamErr.StatusCode
		if upstreamErr.Body != "" {
			details["upstream_body"] = upstreamErr.Body
		}
	}
	return details
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
