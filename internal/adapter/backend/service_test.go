package backend

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docaccess/internal/domain"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	c, _ := newTestClient(t, handler)
	return NewService(c, time.Minute, nil)
}

func TestProcessDocumentCombinesResults(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/translate-pipeline":
			w.Write([]byte(`{"translated_text":"translated"}`))
		case "/summarize":
			w.Write([]byte(`{"summary":"simple"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	res, err := s.ProcessDocument(context.Background(), "original", "hi", domain.DomainGovernment)
	require.NoError(t, err)
	assert.Equal(t, &domain.ProcessingResult{
		OriginalText:   "original",
		TranslatedText: "translated",
		SimplifiedText: "simple",
	}, res)
}

func TestProcessDocumentFailsWhenEitherCallFails(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/translate-pipeline":
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"translator down"}`))
		case "/summarize":
			w.Write([]byte(`{"summary":"simple"}`))
		}
	})

	res, err := s.ProcessDocument(context.Background(), "original", "hi", domain.DomainMedical)
	assert.Nil(t, res, "no partial result")
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "HTTP_500", apiErr.Code)
	assert.Equal(t, "translator down", apiErr.Message)
}

func TestExtractTextFromImageConfidence(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"text":"scanned"}`))
	})
	ex, err := s.ExtractTextFromImage(context.Background(), domain.Upload{Filename: "a.pdf", Data: []byte("%PDF-1.4")}, domain.DomainGovernment)
	require.NoError(t, err)
	assert.Equal(t, &domain.Extraction{ExtractedText: "scanned", Confidence: 1}, ex)
}

func TestCheckHealthMapping(t *testing.T) {
	status := "ok"
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"` + status + `"}`))
	})

	h, err := s.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, h.Status)

	status = "degraded"
	h, err = s.CheckHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.HealthError, h.Status)
}

func TestGetLanguagesCached(t *testing.T) {
	var calls int32
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(`{"languages":[{"code":"hi","name":"Hindi"},{"code":"ta","name":"Tamil"}]}`))
	})

	for range 3 {
		langs, err := s.GetLanguages(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []domain.Language{{Code: "hi", Name: "Hindi"}, {Code: "ta", Name: "Tamil"}}, langs)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnalyzeDocumentAISwallowsFailure(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	assert.Nil(t, s.AnalyzeDocumentAI(context.Background(), "text", "medical"))
}

func TestAnalyzeDocumentAIReturnsPayload(t *testing.T) {
	s := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"medical","raw_output":"ok"}`))
	})
	raw := s.AnalyzeDocumentAI(context.Background(), "text", "medical")
	assert.JSONEq(t, `{"type":"medical","raw_output":"ok"}`, string(raw))
}

func TestDemoService(t *testing.T) {
	d := NewDemoService()
	ctx := context.Background()

	res, err := d.ProcessDocument(ctx, "mine", "hi", domain.DomainGovernment)
	require.NoError(t, err)
	assert.Equal(t, "mine", res.OriginalText)
	assert.Equal(t, DemoTranslatedText, res.TranslatedText)

	ex, err := d.ExtractTextFromImage(ctx, domain.Upload{}, domain.DomainGovernment)
	require.NoError(t, err)
	assert.Equal(t, DemoConfidence, ex.Confidence)

	h, err := d.CheckHealth(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.HealthHealthy, h.Status)

	langs, err := d.GetLanguages(ctx)
	require.NoError(t, err)
	assert.Len(t, langs, 16)

	assert.Contains(t, string(d.AnalyzeDocumentAI(ctx, "x", "medical")), `"audience":"medical"`)

	exp, err := d.Explain(ctx, "First part. Second part.", "")
	require.NoError(t, err)
	assert.Equal(t, "In simple words: First part.", exp)
}

func TestDemoServiceLatencyHonoursContext(t *testing.T) {
	d := &DemoService{Latency: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.ProcessDocument(ctx, "x", "hi", domain.DomainGovernment)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, d.AnalyzeDocumentAI(ctx, "x", "general"))
}
