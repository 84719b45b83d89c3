package domain

import (
	"context"
	"encoding/json"
)

// KVStore is the durable key-value medium behind the persistent store adapter.
// Get returns ErrNotFound when key is absent.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Keys under which client state is persisted.
const (
	StorageKeyAuth        = "docaccess_auth"
	StorageKeyDocuments   = "docaccess_documents"
	StorageKeyPreferences = "docaccess_preferences"
)

// StateStore persists JSON-encodable client state. It never fails its caller:
// Decode reports false when key is absent, unreadable or corrupt, and Encode
// and Remove log their own failures.
type StateStore interface {
	Decode(ctx context.Context, key string, dst any) bool
	Encode(ctx context.Context, key string, v any)
	Remove(ctx context.Context, key string)
}

// DocumentService is the high-level view of the remote backend used by the
// processing flows. Both the live HTTP adapter and the demo adapter implement it.
type DocumentService interface {
	// ProcessDocument translates and simplifies text concurrently. Either
	// sub-call failing fails the whole operation.
	ProcessDocument(ctx context.Context, text, targetLanguage string, d DocumentDomain) (*ProcessingResult, error)
	ExtractTextFromImage(ctx context.Context, file Upload, d DocumentDomain) (*Extraction, error)
	TranscribeAudio(ctx context.Context, audio Upload, languageCode string, d DocumentDomain) (*Transcription, error)
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (string, error)
	Summarize(ctx context.Context, text, audience string) (string, error)
	Explain(ctx context.Context, text, audience string) (string, error)
	GetLanguages(ctx context.Context) ([]Language, error)
	CheckHealth(ctx context.Context) (*Health, error)
	// AnalyzeDocumentAI is advisory: failures are logged and reported as a nil payload.
	AnalyzeDocumentAI(ctx context.Context, text, audience string) json.RawMessage
}
