package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"docaccess/internal/adapter/store"
	"docaccess/internal/domain"
)

var testNow = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func newTestApp(t *testing.T, kv domain.KVStore) *App {
	t.Helper()
	if kv == nil {
		kv = store.NewMemoryStore()
	}
	return NewApp(AppDeps{
		Store: store.NewAdapter(kv, nil),
		Now:   func() time.Time { return testNow },
	})
}

func hydratedApp(t *testing.T) (*App, *store.MemoryStore) {
	t.Helper()
	kv := store.NewMemoryStore()
	app := newTestApp(t, kv)
	app.Hydrate(context.Background())
	return app, kv
}

func putJSON(t *testing.T, kv domain.KVStore, key, raw string) {
	t.Helper()
	if err := kv.Put(context.Background(), key, []byte(raw)); err != nil {
		t.Fatalf("Put(%s): %v", key, err)
	}
}

func stored(t *testing.T, kv domain.KVStore, key string) string {
	t.Helper()
	data, err := kv.Get(context.Background(), key)
	if err != nil {
		return ""
	}
	return string(data)
}

// fakeService is a scriptable domain.DocumentService.
type fakeService struct {
	mu sync.Mutex

	extractText string
	transcript  string
	explain     string

	processErr error
	extractErr error
	explainErr error

	analysis json.RawMessage
	block    chan struct{} // when set, ProcessDocument waits on it

	calls          []string
	processedText  string
	processedLang  string
	analysisAud    string
	explainPrompt  string
	explainAud     string
	transcribeLang string
}

func (f *fakeService) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) ProcessDocument(ctx context.Context, text, lang string, _ domain.DocumentDomain) (*domain.ProcessingResult, error) {
	f.record("process")
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.processErr != nil {
		return nil, f.processErr
	}
	f.mu.Lock()
	f.processedText, f.processedLang = text, lang
	f.mu.Unlock()
	return &domain.ProcessingResult{
		OriginalText:   text,
		TranslatedText: "translated: " + text,
		SimplifiedText: "simple: " + text,
	}, nil
}

func (f *fakeService) ExtractTextFromImage(context.Context, domain.Upload, domain.DocumentDomain) (*domain.Extraction, error) {
	f.record("extract")
	if f.extractErr != nil {
		return nil, f.extractErr
	}
	return &domain.Extraction{ExtractedText: f.extractText, Confidence: 1}, nil
}

func (f *fakeService) TranscribeAudio(_ context.Context, _ domain.Upload, lang string, _ domain.DocumentDomain) (*domain.Transcription, error) {
	f.record("transcribe")
	f.mu.Lock()
	f.transcribeLang = lang
	f.mu.Unlock()
	return &domain.Transcription{Text: f.transcript}, nil
}

func (f *fakeService) Translate(context.Context, string, string, string) (string, error) {
	f.record("translate")
	return "", nil
}

func (f *fakeService) Summarize(context.Context, string, string) (string, error) {
	f.record("summarize")
	return "", nil
}

func (f *fakeService) Explain(_ context.Context, text, audience string) (string, error) {
	f.record("explain")
	f.mu.Lock()
	f.explainPrompt, f.explainAud = text, audience
	f.mu.Unlock()
	return f.explain, f.explainErr
}

func (f *fakeService) GetLanguages(context.Context) ([]domain.Language, error) {
	return nil, nil
}

func (f *fakeService) CheckHealth(context.Context) (*domain.Health, error) {
	return &domain.Health{Status: domain.HealthHealthy}, nil
}

func (f *fakeService) AnalyzeDocumentAI(_ context.Context, _, audience string) json.RawMessage {
	f.record("analyze")
	f.mu.Lock()
	f.analysisAud = audience
	f.mu.Unlock()
	return f.analysis
}
