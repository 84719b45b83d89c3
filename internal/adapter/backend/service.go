package backend

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
)

const languagesCacheKey = "languages"

// Service is the live domain.DocumentService backed by Client.
type Service struct {
	client *Client
	cache  *gocache.Cache
	logger *slog.Logger
}

// NewService wraps client. Language lists are cached for languagesTTL
// (0 disables caching).
func NewService(client *Client, languagesTTL time.Duration, log *slog.Logger) *Service {
	s := &Service{client: client, logger: logger.OrDiscard(log)}
	if languagesTTL > 0 {
		s.cache = gocache.New(languagesTTL, 2*languagesTTL)
	}
	return s
}

// Client exposes the underlying HTTP client.
func (s *Service) Client() *Client { return s.client }

// ProcessDocument runs translation and simplification concurrently. The
// result is all-or-nothing: if either call fails the other's output is
// discarded.
func (s *Service) ProcessDocument(ctx context.Context, text, targetLanguage string, _ domain.DocumentDomain) (*domain.ProcessingResult, error) {
	var translated, simplified string

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		translated, err = s.client.TranslatePipeline(gctx, text, targetLanguage, "")
		return err
	})
	g.Go(func() error {
		var err error
		simplified, err = s.client.Summarize(gctx, text, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.ProcessingResult{
		OriginalText:   text,
		TranslatedText: translated,
		SimplifiedText: simplified,
	}, nil
}

// ExtractTextFromImage runs OCR on an image or PDF. The backend reports no
// confidence, so a successful extraction is reported as 1.
func (s *Service) ExtractTextFromImage(ctx context.Context, file domain.Upload, _ domain.DocumentDomain) (*domain.Extraction, error) {
	text, err := s.client.FileToText(ctx, file)
	if err != nil {
		return nil, err
	}
	return &domain.Extraction{ExtractedText: text, Confidence: 1}, nil
}

func (s *Service) TranscribeAudio(ctx context.Context, audio domain.Upload, languageCode string, _ domain.DocumentDomain) (*domain.Transcription, error) {
	text, err := s.client.SpeechToText(ctx, audio, languageCode)
	if err != nil {
		return nil, err
	}
	return &domain.Transcription{Text: text}, nil
}

func (s *Service) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error) {
	return s.client.Translate(ctx, text, sourceLanguage, targetLanguage)
}

func (s *Service) Summarize(ctx context.Context, text, audience string) (string, error) {
	return s.client.Summarize(ctx, text, audience)
}

func (s *Service) Explain(ctx context.Context, text, audience string) (string, error) {
	return s.client.Explain(ctx, text, audience)
}

// GetLanguages returns the backend's language list, cached per base URL.
func (s *Service) GetLanguages(ctx context.Context) ([]domain.Language, error) {
	key := languagesCacheKey + ":" + s.client.BaseURL()
	if s.cache != nil {
		if v, ok := s.cache.Get(key); ok {
			return append([]domain.Language(nil), v.([]domain.Language)...), nil
		}
	}
	langs, err := s.client.Languages(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.SetDefault(key, langs)
	}
	return append([]domain.Language(nil), langs...), nil
}

// CheckHealth maps the backend's "ok" to healthy and anything else to error.
// Transport failures are returned as errors.
func (s *Service) CheckHealth(ctx context.Context) (*domain.Health, error) {
	status, err := s.client.Health(ctx)
	if err != nil {
		return nil, err
	}
	if status == "ok" {
		return &domain.Health{Status: domain.HealthHealthy}, nil
	}
	return &domain.Health{Status: domain.HealthError}, nil
}

// AnalyzeDocumentAI never fails: a backend error is logged and reported as a
// nil analysis so document processing can continue without it.
func (s *Service) AnalyzeDocumentAI(ctx context.Context, text, audience string) json.RawMessage {
	raw, err := s.client.AIAnalyze(ctx, text, audience)
	if err != nil {
		s.logger.Warn("ai analysis failed", "audience", audience, "code", domain.ErrorCodeOf(err), "error", err)
		return nil
	}
	return raw
}

var _ domain.DocumentService = (*Service)(nil)
