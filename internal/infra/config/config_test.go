package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docaccess/internal/domain"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.Backend.BaseURL != domain.DefaultAPIBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.Backend.BaseURL, domain.DefaultAPIBaseURL)
	}
	if cfg.Storage.Backend != "file" {
		t.Errorf("Storage.Backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Limits.MaxFileSize != 10*1024*1024 {
		t.Errorf("MaxFileSize = %d, want 10MiB", cfg.Limits.MaxFileSize)
	}
	if cfg.Limits.MaxTextLength != 5000 {
		t.Errorf("MaxTextLength = %d, want 5000", cfg.Limits.MaxTextLength)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadNonExistentReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.Timeout != 60*time.Second {
		t.Errorf("expected defaults, got Timeout=%v", cfg.Backend.Timeout)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
backend:
  base_url: "https://docs.example.org"
  timeout: 15s
  rate_limit:
    requests_per_second: 2
    burst: 1
storage:
  backend: sqlite
  sqlite_path: /tmp/docaccess-test.db
preferences:
  domain: medical
  demo_mode: false
logger:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.BaseURL != "https://docs.example.org" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 15*time.Second {
		t.Errorf("Timeout = %v, want 15s", cfg.Backend.Timeout)
	}
	if cfg.Storage.Backend != "sqlite" {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	// Untouched sections keep their defaults.
	if cfg.Limits.MaxTextLength != 5000 {
		t.Errorf("MaxTextLength = %d, want 5000", cfg.Limits.MaxTextLength)
	}

	prefs := cfg.DefaultPreferences()
	if prefs.Domain != domain.DomainMedical || prefs.DefaultDomain != domain.DomainMedical {
		t.Errorf("domain overrides not applied: %+v", prefs)
	}
	if prefs.DemoMode {
		t.Error("DemoMode should be false")
	}
	if prefs.APIBaseURL != "https://docs.example.org" {
		t.Errorf("APIBaseURL = %q", prefs.APIBaseURL)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Fatalf("err = %v, want ErrConfigLoad", err)
	}
}

func TestLoadValidationFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "storage:\n  backend: redis\nbackend:\n  base_url: nope\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want *ValidationError", err)
	}
	if len(ve.Errors) != 2 {
		t.Errorf("got %d errors, want 2: %v", len(ve.Errors), ve.Errors)
	}
	if !errors.Is(err, domain.ErrConfigLoad) {
		t.Error("validation error should match ErrConfigLoad")
	}
}

func TestLoadInsecurePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("logger:\n  level: info\n"), 0o666); err != nil {
		t.Fatal(err)
	}
	if err := os.Chmod(path, 0o666); err != nil {
		t.Fatal(err)
	}
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "insecure permissions") {
		t.Fatalf("err = %v, want insecure permissions", err)
	}
}

func TestValidatePermissions(t *testing.T) {
	tests := []struct {
		mode    os.FileMode
		wantErr bool
	}{
		{0o600, false},
		{0o644, false},
		{0o640, false},
		{0o660, true},
		{0o666, true},
	}
	for _, tt := range tests {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, nil, tt.mode); err != nil {
			t.Fatal(err)
		}
		if err := os.Chmod(path, tt.mode); err != nil {
			t.Fatal(err)
		}
		err := validatePermissions(path)
		if (err != nil) != tt.wantErr {
			t.Errorf("mode %o: err = %v, wantErr %v", tt.mode, err, tt.wantErr)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DOCACCESS_BACKEND_BASE_URL", "http://backend:9000")
	t.Setenv("DOCACCESS_BACKEND_TIMEOUT", "5s")
	t.Setenv("DOCACCESS_STORAGE_BACKEND", "memory")
	t.Setenv("DOCACCESS_DEMO_MODE", "false")
	t.Setenv("DOCACCESS_LOGGER_LEVEL", "debug")
	t.Setenv("DOCACCESS_BACKEND_CIRCUIT_BREAKER", "false")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Backend.BaseURL != "http://backend:9000" {
		t.Errorf("BaseURL = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("Timeout = %v", cfg.Backend.Timeout)
	}
	if cfg.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q", cfg.Storage.Backend)
	}
	if cfg.Preferences.DemoMode == nil || *cfg.Preferences.DemoMode {
		t.Errorf("DemoMode = %v, want false", cfg.Preferences.DemoMode)
	}
	if cfg.Logger.Level != "debug" {
		t.Errorf("Logger.Level = %q", cfg.Logger.Level)
	}
	if cfg.Backend.CircuitBreaker.Enabled {
		t.Error("circuit breaker should be disabled")
	}
}

func TestStoragePassphraseFromEnvOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("storage:\n  encrypt: true\n  passphrase: ignored\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected validation error without DOCACCESS_STORAGE_PASSPHRASE")
	}

	t.Setenv("DOCACCESS_STORAGE_PASSPHRASE", "pw")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Storage.Encrypt || cfg.Storage.Passphrase != "pw" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestEnvOverridesIgnoreGarbage(t *testing.T) {
	t.Setenv("DOCACCESS_BACKEND_TIMEOUT", "soon")
	t.Setenv("DOCACCESS_DEMO_MODE", "maybe")

	cfg := Defaults()
	ApplyEnvOverrides(cfg)

	if cfg.Backend.Timeout != 60*time.Second {
		t.Errorf("Timeout = %v, want default", cfg.Backend.Timeout)
	}
	if cfg.Preferences.DemoMode != nil {
		t.Error("unparseable DemoMode should be ignored")
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := EncryptValue("sk-live-123", "hunter2")
	if err != nil {
		t.Fatalf("EncryptValue: %v", err)
	}
	got, err := DecryptValue(enc, "hunter2")
	if err != nil {
		t.Fatalf("DecryptValue: %v", err)
	}
	if got != "sk-live-123" {
		t.Errorf("got %q", got)
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	enc, err := EncryptValue("secret", "right")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptValue(enc, "wrong"); !errors.Is(err, domain.ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestDecryptValueMalformed(t *testing.T) {
	for _, in := range []string{"no-colon", "zz:00", "00:zz", "00:00"} {
		if _, err := DecryptValue(in, "pass"); !errors.Is(err, domain.ErrDecryption) {
			t.Errorf("DecryptValue(%q) err = %v, want ErrDecryption", in, err)
		}
	}
}

func TestLoadWithEncryptedAPIKey(t *testing.T) {
	enc, err := EncryptValue("backend-token", "passphrase")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "backend:\n  api_key: \"enc:" + enc + "\"\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("DOCACCESS_CONFIG_KEY", "passphrase")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Backend.APIKey != "backend-token" {
		t.Errorf("APIKey = %q", cfg.Backend.APIKey)
	}
}

func TestLoadEncryptedAPIKeyWithoutPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("backend:\n  api_key: \"enc:00:00\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCACCESS_CONFIG_KEY", "")
	if _, err := Load(path); !errors.Is(err, domain.ErrDecryption) {
		t.Errorf("err = %v, want ErrDecryption", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Defaults()
	cfg.Storage.Backend = "memory"
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Storage.Backend != "memory" {
		t.Errorf("Storage.Backend = %q", loaded.Storage.Backend)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("DOCACCESS_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("DOCACCESS_TEST_DOTENV", "")
	os.Unsetenv("DOCACCESS_TEST_DOTENV")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("DOCACCESS_TEST_DOTENV"); got != "from-file" {
		t.Errorf("env = %q, want from-file", got)
	}
}
