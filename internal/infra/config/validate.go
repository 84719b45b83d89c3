package config

import (
	"fmt"
	"strings"

	"docaccess/internal/domain"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// Unwrap lets callers match validation failures with errors.Is(err, domain.ErrConfigLoad).
func (v *ValidationError) Unwrap() error { return domain.ErrConfigLoad }

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a *ValidationError
// when one or more problems are found, allowing callers to inspect all issues.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateBackend(cfg, ve)
	validateStorage(cfg, ve)
	validatePreferences(cfg, ve)
	validateLimits(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateBackend(cfg *Config, ve *ValidationError) {
	b := cfg.Backend
	if err := domain.ValidateBaseURL(b.BaseURL); err != nil {
		ve.Add("backend.base_url %q must be an absolute http(s) URL", b.BaseURL)
	}
	if b.Timeout <= 0 {
		ve.Add("backend.timeout must be > 0")
	}
	if b.ConnTimeout < 0 {
		ve.Add("backend.conn_timeout must be >= 0")
	}
	if b.RateLimit.RequestsPerSecond < 0 {
		ve.Add("backend.rate_limit.requests_per_second must be >= 0")
	}
	if b.RateLimit.RequestsPerSecond > 0 && b.RateLimit.Burst <= 0 {
		ve.Add("backend.rate_limit.burst must be > 0 when rate limiting is enabled")
	}
	if b.CircuitBreaker.Enabled && b.CircuitBreaker.Timeout < 0 {
		ve.Add("backend.circuit_breaker.timeout must be >= 0")
	}
}

func validateStorage(cfg *Config, ve *ValidationError) {
	switch cfg.Storage.Backend {
	case "file":
		if cfg.Storage.DataDir == "" {
			ve.Add("storage.data_dir is required for the file backend")
		}
	case "sqlite":
		if cfg.Storage.SQLitePath == "" {
			ve.Add("storage.sqlite_path is required for the sqlite backend")
		}
	case "memory":
	default:
		ve.Add("storage.backend %q must be one of: file, sqlite, memory", cfg.Storage.Backend)
	}
	if cfg.Storage.Encrypt && cfg.Storage.Passphrase == "" {
		ve.Add("storage.encrypt requires DOCACCESS_STORAGE_PASSPHRASE")
	}
}

func validatePreferences(cfg *Config, ve *ValidationError) {
	p := cfg.Preferences
	if p.Domain != "" {
		if _, err := domain.ParseDomain(p.Domain); err != nil {
			ve.Add("preferences.domain %q must be government or medical", p.Domain)
		}
	}
	if p.Theme != "" {
		if _, err := domain.ParseTheme(p.Theme); err != nil {
			ve.Add("preferences.theme %q must be light, dark or system", p.Theme)
		}
	}
}

func validateLimits(cfg *Config, ve *ValidationError) {
	if cfg.Limits.MaxFileSize <= 0 {
		ve.Add("limits.max_file_size must be > 0")
	}
	if cfg.Limits.MaxTextLength <= 0 {
		ve.Add("limits.max_text_length must be > 0")
	}
	if cfg.Limits.MaxAudioSize <= 0 {
		ve.Add("limits.max_audio_size must be > 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not a known level", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q must be text or json", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q must be stdout or noop", cfg.Tracer.Exporter)
	}
}
