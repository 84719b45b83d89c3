package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"docaccess/internal/domain"
	"docaccess/internal/infra/logger"
)

// Adapter implements domain.StateStore: JSON values over a domain.KVStore.
// It never fails its callers; storage problems are logged and reads fall
// back to the caller's default.
type Adapter struct {
	kv     domain.KVStore
	logger *slog.Logger
}

// NewAdapter wraps kv. A nil kv yields an adapter whose reads always miss
// and whose writes are dropped, matching an unavailable medium.
func NewAdapter(kv domain.KVStore, log *slog.Logger) *Adapter {
	return &Adapter{kv: kv, logger: logger.OrDiscard(log)}
}

// Available reports whether a durable medium is attached.
func (a *Adapter) Available() bool {
	return a != nil && a.kv != nil
}

// Decode reads key into dst. It reports false when the key is absent, the
// medium is unavailable, the read fails or the stored value does not decode;
// dst may then hold a partial decode and should be discarded.
func (a *Adapter) Decode(ctx context.Context, key string, dst any) bool {
	if !a.Available() {
		return false
	}
	data, err := a.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			a.logger.Warn("store read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		a.logger.Warn("stored value is corrupt, using default", "key", key, "error", err)
		return false
	}
	return true
}

// Encode writes v as JSON under key. Failures are logged and swallowed.
func (a *Adapter) Encode(ctx context.Context, key string, v any) {
	if !a.Available() {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		a.logger.Error("store encode failed", "key", key, "error", err)
		return
	}
	if err := a.kv.Put(ctx, key, data); err != nil {
		a.logger.Error("store write failed", "key", key, "error", err)
	}
}

// Remove deletes key. Failures are logged and swallowed.
func (a *Adapter) Remove(ctx context.Context, key string) {
	if !a.Available() {
		return
	}
	if err := a.kv.Delete(ctx, key); err != nil {
		a.logger.Error("store delete failed", "key", key, "error", err)
	}
}

// Load returns the value stored under key, or def when Decode misses.
func Load[T any](ctx context.Context, s domain.StateStore, key string, def T) T {
	var v T
	if !s.Decode(ctx, key, &v) {
		return def
	}
	return v
}

// Save stores value under key.
func Save[T any](ctx context.Context, s domain.StateStore, key string, value T) {
	s.Encode(ctx, key, value)
}

// Close releases the medium when it holds resources (the SQLite store does).
func (a *Adapter) Close() error {
	if !a.Available() {
		return nil
	}
	if c, ok := a.kv.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Open builds the KV medium named by backend ("file", "sqlite" or "memory").
func Open(backend, dataDir, sqlitePath string) (domain.KVStore, error) {
	switch backend {
	case "file", "":
		return NewFileStore(dataDir), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrInvalidInput, backend)
	}
}

var _ domain.StateStore = (*Adapter)(nil)
