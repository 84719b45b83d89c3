package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"docaccess/internal/domain"
)

// Config is the top-level application configuration.
type Config struct {
	Backend     BackendConfig     `yaml:"backend"`
	Storage     StorageConfig     `yaml:"storage"`
	Preferences PreferencesConfig `yaml:"preferences"`
	Limits      LimitsConfig      `yaml:"limits"`
	Logger      LoggerConfig      `yaml:"logger"`
	Tracer      TracerConfig      `yaml:"tracer"`
}

// BackendConfig holds settings for the remote document service.
type BackendConfig struct {
	// BaseURL seeds the apiBaseUrl preference. A stored preference wins.
	BaseURL        string               `yaml:"base_url"`
	APIKey         string               `yaml:"api_key,omitempty"` // "enc:" values are decrypted on load
	Timeout        time.Duration        `yaml:"timeout"`
	ConnTimeout    time.Duration        `yaml:"conn_timeout"`
	LanguagesTTL   time.Duration        `yaml:"languages_ttl"`
	RateLimit      RateLimitConfig      `yaml:"rate_limit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Pool           PoolConfig           `yaml:"pool"`
}

// RateLimitConfig throttles outgoing backend requests.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // 0 = unlimited
	Burst             int     `yaml:"burst"`
}

// CircuitBreakerConfig configures the backend circuit breaker.
type CircuitBreakerConfig struct {
	Enabled     bool          `yaml:"enabled"`
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// PoolConfig configures HTTP connection pooling.
type PoolConfig struct {
	MaxIdleConns        int           `yaml:"max_idle_conns"`
	MaxIdleConnsPerHost int           `yaml:"max_idle_conns_per_host"`
	IdleConnTimeout     time.Duration `yaml:"idle_conn_timeout"`
}

// StorageConfig selects the durable medium for client state.
type StorageConfig struct {
	Backend    string `yaml:"backend"` // "file", "sqlite" or "memory"
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	// Encrypt seals stored values with a key derived from Passphrase,
	// which is read from DOCACCESS_STORAGE_PASSPHRASE only.
	Encrypt    bool   `yaml:"encrypt"`
	Passphrase string `yaml:"-"`
}

// PreferencesConfig overrides the built-in preference defaults. Only the
// defaults change; values the user saved still win after hydration.
type PreferencesConfig struct {
	Language string `yaml:"language,omitempty"`
	Domain   string `yaml:"domain,omitempty"`
	Theme    string `yaml:"theme,omitempty"`
	DemoMode *bool  `yaml:"demo_mode,omitempty"`
}

// LimitsConfig holds client-side validation limits.
type LimitsConfig struct {
	MaxFileSize   int64 `yaml:"max_file_size"`   // bytes
	MaxTextLength int   `yaml:"max_text_length"` // characters
	MaxAudioSize  int64 `yaml:"max_audio_size"`  // bytes
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Output string `yaml:"output"` // "stderr", "stdout" or a file path
}

// TracerConfig holds OpenTelemetry settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// DefaultHomeDir returns $HOME/.docaccess, falling back to ./.docaccess.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".docaccess"
	}
	return filepath.Join(home, ".docaccess")
}

// DefaultPath is the config file used when --config is not given.
func DefaultPath() string {
	return filepath.Join(DefaultHomeDir(), "config.yaml")
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	dataDir := filepath.Join(DefaultHomeDir(), "data")
	return &Config{
		Backend: BackendConfig{
			BaseURL:      domain.DefaultAPIBaseURL,
			Timeout:      60 * time.Second,
			ConnTimeout:  10 * time.Second,
			LanguagesTTL: 30 * time.Minute,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 5,
				Burst:             5,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Enabled:     true,
				MaxFailures: 5,
				Timeout:     30 * time.Second,
				Interval:    60 * time.Second,
			},
		},
		Storage: StorageConfig{
			Backend:    "file",
			DataDir:    dataDir,
			SQLitePath: filepath.Join(dataDir, "docaccess.db"),
		},
		Limits: LimitsConfig{
			MaxFileSize:   10 * 1024 * 1024, // 10 MiB
			MaxTextLength: 5000,
			MaxAudioSize:  25 * 1024 * 1024,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Tracer: TracerConfig{
			Enabled:  false,
			Exporter: "noop",
		},
	}
}

// Load reads the YAML file at path on top of Defaults, applies DOCACCESS_*
// env overrides, decrypts "enc:" secrets and validates the result.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// defaults + env only
	case err != nil:
		return nil, fmt.Errorf("%w: read config: %v", domain.ErrConfigLoad, err)
	default:
		if err := validatePermissions(path); err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: parse config: %v", domain.ErrConfigLoad, err)
		}
	}

	ApplyEnvOverrides(cfg)

	if strings.HasPrefix(cfg.Backend.APIKey, encPrefix) {
		passphrase := os.Getenv("DOCACCESS_CONFIG_KEY")
		if passphrase == "" {
			return nil, fmt.Errorf("%w: backend.api_key is encrypted but DOCACCESS_CONFIG_KEY is not set", domain.ErrDecryption)
		}
		if err := decryptSecrets(cfg, passphrase); err != nil {
			return nil, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as YAML with 0600 permissions, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// ApplyEnvOverrides maps DOCACCESS_* env vars to config fields.
func ApplyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DOCACCESS_BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("DOCACCESS_BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("DOCACCESS_BACKEND_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Backend.Timeout = d
		}
	}
	if v := os.Getenv("DOCACCESS_BACKEND_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.Backend.RateLimit.RequestsPerSecond = f
		}
	}
	if v := os.Getenv("DOCACCESS_BACKEND_CIRCUIT_BREAKER"); v == "false" {
		cfg.Backend.CircuitBreaker.Enabled = false
	}
	if v := os.Getenv("DOCACCESS_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("DOCACCESS_STORAGE_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("DOCACCESS_STORAGE_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DOCACCESS_STORAGE_ENCRYPT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Storage.Encrypt = b
		}
	}
	if v := os.Getenv("DOCACCESS_STORAGE_PASSPHRASE"); v != "" {
		cfg.Storage.Passphrase = v
	}
	if v := os.Getenv("DOCACCESS_DEMO_MODE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Preferences.DemoMode = &b
		}
	}
	if v := os.Getenv("DOCACCESS_LANGUAGE"); v != "" {
		cfg.Preferences.Language = v
	}
	if v := os.Getenv("DOCACCESS_DOMAIN"); v != "" {
		cfg.Preferences.Domain = v
	}
	if v := os.Getenv("DOCACCESS_LOGGER_LEVEL"); v != "" {
		cfg.Logger.Level = v
	}
	if v := os.Getenv("DOCACCESS_LOGGER_FORMAT"); v != "" {
		cfg.Logger.Format = v
	}
	if v := os.Getenv("DOCACCESS_LOGGER_OUTPUT"); v != "" {
		cfg.Logger.Output = v
	}
	if v := os.Getenv("DOCACCESS_TRACER_ENABLED"); v == "true" {
		cfg.Tracer.Enabled = true
	}
	if v := os.Getenv("DOCACCESS_TRACER_EXPORTER"); v != "" {
		cfg.Tracer.Exporter = v
	}
}

// DefaultPreferences returns the preference defaults with any configured
// overrides applied. Invalid overrides are rejected by Validate.
func (c *Config) DefaultPreferences() domain.Preferences {
	p := domain.DefaultPreferences()
	if c.Backend.BaseURL != "" {
		p.APIBaseURL = c.Backend.BaseURL
	}
	if c.Preferences.Language != "" {
		p.Language = c.Preferences.Language
		p.DefaultLanguage = c.Preferences.Language
	}
	if d, err := domain.ParseDomain(c.Preferences.Domain); err == nil {
		p.Domain = d
		p.DefaultDomain = d
	}
	if t, err := domain.ParseTheme(c.Preferences.Theme); err == nil {
		p.Theme = t
	}
	if c.Preferences.DemoMode != nil {
		p.DemoMode = *c.Preferences.DemoMode
	}
	return p
}

// validatePermissions checks the config file has restrictive permissions.
func validatePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: stat config: %v", domain.ErrConfigLoad, err)
	}
	mode := info.Mode().Perm()
	// Allow 0600 and 0644 (readable by others but not writable)
	if mode&0o077 > 0o044 {
		return fmt.Errorf("%w: config file %s has insecure permissions %o (want 0600 or 0644)", domain.ErrConfigLoad, path, mode)
	}
	return nil
}
