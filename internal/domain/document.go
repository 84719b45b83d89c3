package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// ProcessedDocument is one entry of the document history.
// Timestamp is set when the document is created and never mutated.
type ProcessedDocument struct {
	ID             string          `json:"id"`
	OriginalText   string          `json:"originalText"`
	TranslatedText string          `json:"translatedText"`
	SimplifiedText string          `json:"simplifiedText"`
	AudioURL       string          `json:"audioUrl,omitempty"`
	AIAnalysis     json.RawMessage `json:"aiAnalysis"`
	Language       string          `json:"language"`
	Domain         DocumentDomain  `json:"domain"`
	Timestamp      time.Time       `json:"timestamp"`
}

// jsonNull is the canonical encoding of a missing analysis.
var jsonNull = json.RawMessage("null")

// HasAnalysis reports whether an AI analysis payload is attached.
func (d ProcessedDocument) HasAnalysis() bool {
	trimmed := bytes.TrimSpace(d.AIAnalysis)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, jsonNull)
}

// Normalize fills optional fields so the document always serialises the same way.
func (d ProcessedDocument) Normalize() ProcessedDocument {
	if !d.HasAnalysis() {
		d.AIAnalysis = jsonNull
	}
	return d
}

// Clone returns a deep copy of d.
func (d ProcessedDocument) Clone() ProcessedDocument {
	if d.AIAnalysis != nil {
		d.AIAnalysis = append(json.RawMessage(nil), d.AIAnalysis...)
	}
	return d
}

// ProcessingResult is the canonical result of running a text through the
// translate + summarize pipeline.
type ProcessingResult struct {
	OriginalText   string `json:"originalText"`
	TranslatedText string `json:"translatedText"`
	SimplifiedText string `json:"simplifiedText"`
	AudioURL       string `json:"audioUrl,omitempty"`
}

// Extraction is the result of OCR on an image or PDF.
type Extraction struct {
	ExtractedText string  `json:"extractedText"`
	Confidence    float64 `json:"confidence"`
}

// Transcription is the result of speech-to-text.
type Transcription struct {
	Text string `json:"text"`
}

// Language is a language offered by the backend.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Health status values reported by CheckHealth.
const (
	HealthHealthy = "healthy"
	HealthError   = "error"
)

// Health is the normalised backend health.
type Health struct {
	Status string `json:"status"`
}

// Upload is a file handed to the backend.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}
