package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"

	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
	"docaccess/internal/infra/tracer"
)

// Limits are the client-side validation limits applied before any request.
type Limits struct {
	MaxFileSize   int64 // bytes
	MaxTextLength int   // characters
	MaxAudioSize  int64 // bytes
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		MaxFileSize:   10 * 1024 * 1024,
		MaxTextLength: 5000,
		MaxAudioSize:  25 * 1024 * 1024,
	}
}

// SupportedFileTypes are the upload formats accepted for text extraction.
var SupportedFileTypes = []string{
	"image/jpeg",
	"image/png",
	"image/webp",
	"image/tiff",
	"application/pdf",
}

// Processing sources reported in processing events.
const (
	SourceText  = "text"
	SourceFile  = "file"
	SourceAudio = "audio"
)

// Services picks the document service for the current preferences.
type Services struct {
	Live domain.DocumentService
	Demo domain.DocumentService
}

// For returns the demo service in demo mode and the live one otherwise,
// falling back to whichever is configured.
func (s Services) For(p domain.Preferences) domain.DocumentService {
	if (p.DemoMode && s.Demo != nil) || s.Live == nil {
		return s.Demo
	}
	return s.Live
}

// Processor runs the text, file and audio flows that turn input into a
// processed document. Only one flow runs at a time.
type Processor struct {
	app      *App
	services Services
	limits   Limits
	logger   *slog.Logger

	busy atomic.Bool

	mu      sync.Mutex
	lastErr error
}

// NewProcessor creates a Processor adding its results to app.
func NewProcessor(app *App, services Services, limits Limits, log *slog.Logger) *Processor {
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	return &Processor{
		app:      app,
		services: services,
		limits:   limits,
		logger:   logger.OrDiscard(log),
	}
}

// Busy reports whether a flow is in flight.
func (p *Processor) Busy() bool { return p.busy.Load() }

// LastError returns the error of the last failed submission, if any.
func (p *Processor) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// ClearError dismisses the last error.
func (p *Processor) ClearError() {
	p.setError(nil)
}

func (p *Processor) setError(err error) {
	p.mu.Lock()
	p.lastErr = err
	p.mu.Unlock()
}

// ProcessText translates and simplifies text.
func (p *Processor) ProcessText(ctx context.Context, text string) (domain.ProcessedDocument, error) {
	if err := p.ValidateText(text); err != nil {
		return p.reject(err)
	}
	return p.run(ctx, SourceText, func(context.Context, domain.DocumentService, domain.Preferences) (string, error) {
		return text, nil
	})
}

// ProcessFile extracts text from an image or PDF and processes it.
func (p *Processor) ProcessFile(ctx context.Context, file domain.Upload) (domain.ProcessedDocument, error) {
	file, err := p.ValidateFile(file)
	if err != nil {
		return p.reject(err)
	}
	return p.run(ctx, SourceFile, func(ctx context.Context, svc domain.DocumentService, prefs domain.Preferences) (string, error) {
		ext, err := svc.ExtractTextFromImage(ctx, file, prefs.Domain)
		if err != nil {
			return "", err
		}
		p.logger.Debug("text extracted", "file", file.Filename, "confidence", ext.Confidence)
		return ext.ExtractedText, nil
	})
}

// ProcessAudio transcribes a recording and processes the transcript.
func (p *Processor) ProcessAudio(ctx context.Context, audio domain.Upload) (domain.ProcessedDocument, error) {
	if err := p.ValidateAudio(audio); err != nil {
		return p.reject(err)
	}
	return p.run(ctx, SourceAudio, func(ctx context.Context, svc domain.DocumentService, prefs domain.Preferences) (string, error) {
		tr, err := svc.TranscribeAudio(ctx, audio, prefs.Language, prefs.Domain)
		if err != nil {
			return "", err
		}
		return tr.Text, nil
	})
}

// ValidateText checks text against the length limit.
func (p *Processor) ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.NewDomainError("Processor.ProcessText", domain.ErrEmptyText, "")
	}
	if n := utf8.RuneCountInString(text); n > p.limits.MaxTextLength {
		return domain.NewDomainError("Processor.ProcessText", domain.ErrTextTooLong,
			fmt.Sprintf("%d characters, limit %d", n, p.limits.MaxTextLength))
	}
	return nil
}

// ValidateAudio checks that a recording is non-empty and within the size limit.
func (p *Processor) ValidateAudio(audio domain.Upload) error {
	if len(audio.Data) == 0 {
		return domain.NewDomainError("Processor.ProcessAudio", domain.ErrEmptyAudio, "")
	}
	if size := int64(len(audio.Data)); size > p.limits.MaxAudioSize {
		return domain.NewDomainError("Processor.ProcessAudio", domain.ErrFileTooLarge,
			fmt.Sprintf("%d bytes, limit %d", size, p.limits.MaxAudioSize))
	}
	return nil
}

// ValidateFile checks size and detected type of an upload and returns it
// with ContentType set to the detected format.
func (p *Processor) ValidateFile(file domain.Upload) (domain.Upload, error) {
	if len(file.Data) == 0 {
		return file, domain.NewDomainError("Processor.ProcessFile", domain.ErrUnsupportedFile, "file is empty")
	}
	if size := int64(len(file.Data)); size > p.limits.MaxFileSize {
		return file, domain.NewDomainError("Processor.ProcessFile", domain.ErrFileTooLarge,
			fmt.Sprintf("%d bytes, limit %d", size, p.limits.MaxFileSize))
	}
	mt := mimetype.Detect(file.Data)
	for _, supported := range SupportedFileTypes {
		if mt.Is(supported) {
			file.ContentType = supported
			return file, nil
		}
	}
	return file, domain.NewDomainError("Processor.ProcessFile", domain.ErrUnsupportedFile, mt.String())
}

// reject records a validation failure. While another flow is in flight its
// outcome owns the error state, so the failure is only returned.
func (p *Processor) reject(err error) (domain.ProcessedDocument, error) {
	if !p.busy.Load() {
		p.setError(err)
	}
	return domain.ProcessedDocument{}, err
}

type inputStage func(ctx context.Context, svc domain.DocumentService, prefs domain.Preferences) (string, error)

// run executes the stages of one flow in order: input, process, AI analysis,
// then adds the document to the history.
func (p *Processor) run(ctx context.Context, source string, input inputStage) (doc domain.ProcessedDocument, err error) {
	if !p.busy.CompareAndSwap(false, true) {
		return domain.ProcessedDocument{}, domain.NewDomainError("Processor."+source, domain.ErrBusy, "")
	}
	defer p.busy.Store(false)

	ctx, span := tracer.StartSpan(ctx, "processor."+source)
	defer func() { tracer.End(span, err) }()

	p.ClearError()
	p.app.publish(ctx, domain.EventProcessingStarted, domain.ProcessingEventPayload{Source: source})
	defer func() {
		if err != nil {
			p.setError(err)
			p.logger.Warn("processing failed", "source", source, "error", err)
			p.app.publish(ctx, domain.EventProcessingFailed, domain.ProcessingEventPayload{
				Source: source,
				Error:  domain.ErrorMessage(err, "Failed to process document"),
				Code:   string(domain.ErrorCodeOf(err)),
			})
			return
		}
		p.app.publish(ctx, domain.EventProcessingCompleted, domain.ProcessingEventPayload{Source: source, DocumentID: doc.ID})
	}()

	prefs := p.app.Preferences()
	svc := p.services.For(prefs)
	if svc == nil {
		return domain.ProcessedDocument{}, domain.NewDomainError("Processor."+source, domain.ErrProviderError, "no document service configured")
	}

	text, err := input(ctx, svc, prefs)
	if err != nil {
		return domain.ProcessedDocument{}, err
	}

	result, err := svc.ProcessDocument(ctx, text, prefs.Language, prefs.Domain)
	if err != nil {
		return domain.ProcessedDocument{}, err
	}

	analysis := svc.AnalyzeDocumentAI(ctx, result.OriginalText, strings.ToLower(string(prefs.Domain)))

	return p.app.AddDocument(ctx, domain.ProcessedDocument{
		OriginalText:   result.OriginalText,
		TranslatedText: result.TranslatedText,
		SimplifiedText: result.SimplifiedText,
		AudioURL:       result.AudioURL,
		AIAnalysis:     analysis,
		Language:       prefs.Language,
		Domain:         prefs.Domain,
	})
}
