package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"docaccess/internal/domain"
	"docaccess/internal/infra/config"
	"docaccess/internal/infra/logger"
	"docaccess/internal/infra/tracer"
)

// maxResponseBody caps how much of a response body is read.
const maxResponseBody = 10 * 1024 * 1024 // 10 MB

// Defaults applied when a caller leaves an argument empty.
const (
	defaultTargetLanguage = "hi"
	defaultSpeechLanguage = "hi"
	defaultAudience       = "student"
	defaultAIAudience     = "general"
	defaultAudioFilename  = "audio.webm"
	defaultFileFilename   = "document"
)

// Client is the low-level HTTP client for the document backend. It has one
// method per endpoint and reports every failure as a *domain.APIError.
type Client struct {
	mu      sync.RWMutex
	baseURL string

	http    *http.Client
	apiKey  string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *slog.Logger
}

// NewClient creates a Client from cfg. The base URL can be replaced later with
// SetBaseURL when the apiBaseUrl preference changes.
func NewClient(cfg config.BackendConfig, log *slog.Logger) *Client {
	log = logger.OrDiscard(log)
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    NewHTTPClient(cfg),
		apiKey:  cfg.APIKey,
		breaker: newBreaker(cfg.CircuitBreaker, log),
		logger:  log,
	}
	if rps := cfg.RateLimit.RequestsPerSecond; rps > 0 {
		burst := cfg.RateLimit.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return c
}

// BaseURL returns the backend address currently in use.
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// SetBaseURL points subsequent requests at a new backend address.
func (c *Client) SetBaseURL(raw string) error {
	if err := domain.ValidateBaseURL(raw); err != nil {
		return err
	}
	c.mu.Lock()
	c.baseURL = strings.TrimRight(raw, "/")
	c.mu.Unlock()
	c.logger.Debug("backend base url changed", "base_url", raw)
	return nil
}

type healthResponse struct {
	Status string `json:"status"`
}

// Health calls GET /health and returns the raw status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	resp, err := getJSON[healthResponse](ctx, c, "/health")
	if err != nil {
		return "", err
	}
	return resp.Status, nil
}

type languagesResponse struct {
	Languages []domain.Language `json:"languages"`
}

// Languages calls GET /languages.
func (c *Client) Languages(ctx context.Context) ([]domain.Language, error) {
	resp, err := getJSON[languagesResponse](ctx, c, "/languages")
	if err != nil {
		return nil, err
	}
	return resp.Languages, nil
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
}

// Translate calls POST /translate. Both language codes are normalised;
// empty source means auto-detect and empty target means Hindi.
func (c *Client) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	if sourceLanguage == "" {
		sourceLanguage = autoDetect
	}
	if targetLanguage == "" {
		targetLanguage = defaultTargetLanguage
	}
	resp, err := postJSON[translateResponse](ctx, c, "/translate", map[string]string{
		"text":                 text,
		"source_language_code": NormalizeLanguageCode(sourceLanguage),
		"target_language_code": NormalizeLanguageCode(targetLanguage),
	})
	if err != nil {
		return "", err
	}
	return resp.TranslatedText, nil
}

// TranslatePipeline calls POST /translate-pipeline. The backend takes the
// target as given; empty source means auto-detect.
func (c *Client) TranslatePipeline(ctx context.Context, text, targetLanguage, sourceLanguage string) (string, error) {
	if sourceLanguage == "" {
		sourceLanguage = autoDetect
	}
	resp, err := postJSON[translateResponse](ctx, c, "/translate-pipeline", map[string]string{
		"text":                 text,
		"target_lang":          targetLanguage,
		"source_language_code": sourceLanguage,
	})
	if err != nil {
		return "", err
	}
	return resp.TranslatedText, nil
}

type speechResponse struct {
	Transcript string `json:"transcript"`
}

// SpeechToText uploads audio to POST /speech-to-text.
func (c *Client) SpeechToText(ctx context.Context, audio domain.Upload, languageCode string) (string, error) {
	if audio.Filename == "" {
		audio.Filename = defaultAudioFilename
	}
	if languageCode == "" {
		languageCode = defaultSpeechLanguage
	}
	query := url.Values{"language_code": {NormalizeLanguageCode(languageCode)}}

	body, contentType, err := multipartBody(audio)
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/speech-to-text", query: query, body: body, contentType: contentType})
	if err != nil {
		return "", err
	}
	resp, err := decode[speechResponse]("/speech-to-text", raw)
	if err != nil {
		return "", err
	}
	return resp.Transcript, nil
}

type fileTextResponse struct {
	Text string `json:"text"`
}

// FileToText uploads an image or PDF to POST /file-to-text. Backends that
// predate that endpoint answer 404, in which case the upload is retried once
// against /image-to-text.
func (c *Client) FileToText(ctx context.Context, file domain.Upload) (string, error) {
	if file.Filename == "" {
		file.Filename = defaultFileFilename
	}
	body, contentType, err := multipartBody(file)
	if err != nil {
		return "", err
	}

	path := "/file-to-text"
	raw, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: contentType})
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) && apiErr.Code == domain.HTTPErrorCode(http.StatusNotFound) {
		c.logger.Debug("file-to-text not available, falling back to image-to-text")
		path = "/image-to-text"
		raw, err = c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: contentType})
	}
	if err != nil {
		return "", err
	}
	resp, err := decode[fileTextResponse](path, raw)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

type summarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize calls POST /summarize. Empty audience means "student".
func (c *Client) Summarize(ctx context.Context, text, audience string) (string, error) {
	if audience == "" {
		audience = defaultAudience
	}
	resp, err := postJSON[summarizeResponse](ctx, c, "/summarize", map[string]string{"text": text, "audience": audience})
	if err != nil {
		return "", err
	}
	return resp.Summary, nil
}

type explainResponse struct {
	Explanation string `json:"explanation"`
}

// Explain calls POST /explain. Empty audience means "student".
func (c *Client) Explain(ctx context.Context, text, audience string) (string, error) {
	if audience == "" {
		audience = defaultAudience
	}
	resp, err := postJSON[explainResponse](ctx, c, "/explain", map[string]string{"text": text, "audience": audience})
	if err != nil {
		return "", err
	}
	return resp.Explanation, nil
}

// AIAnalyze calls POST /ai-analyze and returns the payload untouched.
// Empty audience means "general".
func (c *Client) AIAnalyze(ctx context.Context, text, audience string) (json.RawMessage, error) {
	if audience == "" {
		audience = defaultAIAudience
	}
	payload, err := json.Marshal(map[string]string{"text": text, "audience": audience})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	raw, err := c.do(ctx, request{method: http.MethodPost, path: "/ai-analyze", body: payload, contentType: "application/json"})
	if err != nil {
		return nil, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, badResponse("/ai-analyze", err)
	}
	return json.RawMessage(bytes.TrimSpace(raw)), nil
}

// --- plumbing ---

type request struct {
	method      string
	path        string
	query       url.Values
	body        []byte
	contentType string
}

func getJSON[T any](ctx context.Context, c *Client, path string) (T, error) {
	raw, err := c.do(ctx, request{method: http.MethodGet, path: path})
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](path, raw)
}

func postJSON[T any](ctx context.Context, c *Client, path string, payload any) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("marshal request: %w", err)
	}
	raw, err := c.do(ctx, request{method: http.MethodPost, path: path, body: body, contentType: "application/json"})
	if err != nil {
		return zero, err
	}
	return decode[T](path, raw)
}

func decode[T any](path string, raw []byte) (T, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, badResponse(path, err)
	}
	return v, nil
}

// do runs req through the rate limiter and circuit breaker inside a client span.
func (c *Client) do(ctx context.Context, req request) (body []byte, err error) {
	ctx, span := tracer.StartSpan(ctx, "backend"+req.path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			tracer.StringAttr("http.method", req.method),
			tracer.StringAttr("http.route", req.path),
		),
	)
	defer func() { tracer.End(span, err) }()

	if c.limiter != nil {
		if werr := c.limiter.Wait(ctx); werr != nil {
			return nil, networkError(werr)
		}
	}

	if c.breaker == nil {
		return c.roundTrip(ctx, req)
	}
	body, err = c.breaker.Execute(func() ([]byte, error) {
		return c.roundTrip(ctx, req)
	})
	if isBreakerRejection(err) {
		return nil, circuitOpen(err)
	}
	return body, err
}

func (c *Client) roundTrip(ctx context.Context, req request) ([]byte, error) {
	target := c.BaseURL() + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, reader)
	if err != nil {
		return nil, networkError(fmt.Errorf("create request: %w", err))
	}
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Debug("backend request failed", "path", req.path, "request_id", requestID, "error", err)
		return nil, networkError(err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, networkError(fmt.Errorf("read response: %w", err))
	}

	c.logger.Debug("backend request completed",
		"method", req.method,
		"path", req.path,
		"status", httpResp.StatusCode,
		"request_id", requestID,
	)

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, normalizeError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}

// multipartBody encodes u as the "file" field of a multipart form. The part's
// content type is sniffed from the data when the caller did not set one.
func multipartBody(u domain.Upload) ([]byte, string, error) {
	contentType := u.ContentType
	if contentType == "" {
		contentType = mimetype.Detect(u.Data).String()
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, u.Filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(u.Data); err != nil {
		return nil, "", fmt.Errorf("write form part: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close form: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}
