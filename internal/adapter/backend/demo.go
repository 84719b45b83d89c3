package backend

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"docaccess/internal/domain"
)

// Canned content returned in demo mode.
const (
	DemoExtractedText  = "Government Order No. 2024/GM/123: All citizens aged 18-45 are eligible for the new healthcare scheme. Please submit your Aadhar number and proof of residence at the nearest government office."
	DemoTranslatedText = "सरकारी आदेश नंबर 2024/GM/123: 18-45 वर्ष की आयु के सभी नागरिक नई स्वास्थ्य सेवा के लिए पात्र हैं। कृपया अपने आधार नंबर और निवास का प्रमाण निकटतम सरकारी कार्यालय में जमा करें।"
	DemoSimplifiedText = "सरकार एक नई स्वास्थ्य सेवा शुरू कर रही है। अगर आप 18 से 45 साल के हैं, तो आप इसके लिए आवेदन कर सकते हैं। आपको अपना आधार कार्ड और पता का सबूत दिखाना होगा।"
	DemoConfidence     = 0.95
)

// DemoLanguages is the language list offered without a backend.
var DemoLanguages = []domain.Language{
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "fr", Name: "French"},
	{Code: "de", Name: "German"},
	{Code: "hi", Name: "Hindi"},
	{Code: "ta", Name: "Tamil"},
	{Code: "te", Name: "Telugu"},
	{Code: "kn", Name: "Kannada"},
	{Code: "ml", Name: "Malayalam"},
	{Code: "mr", Name: "Marathi"},
	{Code: "gu", Name: "Gujarati"},
	{Code: "bn", Name: "Bengali"},
	{Code: "ar", Name: "Arabic"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ru", Name: "Russian"},
	{Code: "zh", Name: "Chinese (Simplified)"},
}

// DemoService implements domain.DocumentService with canned data and no
// network access. Latency, when set, simulates a slow backend and honours ctx.
type DemoService struct {
	Latency time.Duration
}

func NewDemoService() *DemoService { return &DemoService{} }

func (d *DemoService) wait(ctx context.Context) error {
	if d.Latency <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d.Latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (d *DemoService) ProcessDocument(ctx context.Context, text, _ string, _ domain.DocumentDomain) (*domain.ProcessingResult, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return &domain.ProcessingResult{
		OriginalText:   text,
		TranslatedText: DemoTranslatedText,
		SimplifiedText: DemoSimplifiedText,
	}, nil
}

func (d *DemoService) ExtractTextFromImage(ctx context.Context, _ domain.Upload, _ domain.DocumentDomain) (*domain.Extraction, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return &domain.Extraction{ExtractedText: DemoExtractedText, Confidence: DemoConfidence}, nil
}

func (d *DemoService) TranscribeAudio(ctx context.Context, _ domain.Upload, _ string, _ domain.DocumentDomain) (*domain.Transcription, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return &domain.Transcription{Text: DemoExtractedText}, nil
}

func (d *DemoService) Translate(ctx context.Context, _, _, _ string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}
	return DemoTranslatedText, nil
}

func (d *DemoService) Summarize(ctx context.Context, _, _ string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}
	return DemoSimplifiedText, nil
}

func (d *DemoService) Explain(ctx context.Context, text, _ string) (string, error) {
	if err := d.wait(ctx); err != nil {
		return "", err
	}
	return "In simple words: " + firstSentence(text), nil
}

func (d *DemoService) GetLanguages(ctx context.Context) ([]domain.Language, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return append([]domain.Language(nil), DemoLanguages...), nil
}

func (d *DemoService) CheckHealth(ctx context.Context) (*domain.Health, error) {
	if err := d.wait(ctx); err != nil {
		return nil, err
	}
	return &domain.Health{Status: domain.HealthHealthy}, nil
}

type demoAnalysis struct {
	Type        string   `json:"type"`
	Audience    string   `json:"audience"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
}

func (d *DemoService) AnalyzeDocumentAI(ctx context.Context, _, audience string) json.RawMessage {
	if d.wait(ctx) != nil {
		return nil
	}
	raw, err := json.Marshal(demoAnalysis{
		Type:     "demo",
		Audience: audience,
		KeyPoints: []string{
			"नई स्वास्थ्य सेवा सभी के लिए खुली है",
			"18-45 साल के लोग आवेदन कर सकते हैं",
		},
		ActionItems: []string{
			"अपना आधार कार्ड तैयार करें",
			"पता का सबूत लेकर जाएं",
			"निकटतम सरकारी कार्यालय में जाएं",
		},
	})
	if err != nil {
		return nil
	}
	return raw
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, ".!?"); i >= 0 {
		return text[:i+1]
	}
	return text
}

var _ domain.DocumentService = (*DemoService)(nil)
