package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"docaccess/internal/adapter/backend"
	"docaccess/internal/domain"
	"docaccess/internal/infra/config"
)

// CheckStatus represents the result of a health check.
type CheckStatus string

const (
	StatusPass CheckStatus = "PASS"
	StatusWarn CheckStatus = "WARN"
	StatusFail CheckStatus = "FAIL"
)

// CheckResult holds the outcome of a single health check.
type CheckResult struct {
	Name    string
	Status  CheckStatus
	Message string
	Fix     string // optional fix suggestion
}

// Check is a named health check function.
type Check struct {
	Name string
	Fn   func(ctx context.Context, cfg *config.Config) CheckResult
}

const doctorCheckKey = "docaccess_doctor_check"

// runDoctor executes all health checks and reports results.
func runDoctor(w io.Writer) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(w, "warning: %v\n", err)
	}
	cfgPath := configPath()
	cfg, cfgErr := config.Load(cfgPath)

	checks := []Check{
		{Name: "Config file", Fn: checkConfigFile(cfgPath, cfgErr)},
		{Name: "Storage", Fn: checkStorage},
		{Name: "Backend URL", Fn: checkBackendURL},
		{Name: "Backend API key", Fn: checkAPIKey},
		{Name: "Backend connectivity", Fn: checkBackendConnectivity},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return reportChecks(ctx, w, cfg, checks)
}

func reportChecks(ctx context.Context, w io.Writer, cfg *config.Config, checks []Check) error {
	fmt.Fprintln(w, "docaccess doctor")
	fmt.Fprintln(w, strings.Repeat("=", 50))
	fmt.Fprintln(w)

	var pass, warn, fail int
	for _, check := range checks {
		result := check.Fn(ctx, cfg)
		result.Name = check.Name

		fmt.Fprintf(w, "  %s %s: %s\n", statusIcon(result.Status), result.Name, result.Message)
		if result.Fix != "" {
			fmt.Fprintf(w, "      Fix: %s\n", result.Fix)
		}

		switch result.Status {
		case StatusPass:
			pass++
		case StatusWarn:
			warn++
		case StatusFail:
			fail++
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("-", 50))
	fmt.Fprintf(w, "Results: %d passed, %d warnings, %d failed\n", pass, warn, fail)

	if fail > 0 {
		fmt.Fprintln(w, "\nFix the FAIL issues above to ensure docaccess runs correctly.")
		return fmt.Errorf("%d check(s) failed", fail)
	}
	if warn > 0 {
		fmt.Fprintln(w, "\ndocaccess should work, but consider addressing the warnings.")
	} else {
		fmt.Fprintln(w, "\nAll checks passed! docaccess is ready to run.")
	}
	return nil
}

func statusIcon(s CheckStatus) string {
	switch s {
	case StatusPass:
		return "[PASS]"
	case StatusWarn:
		return "[WARN]"
	case StatusFail:
		return "[FAIL]"
	default:
		return "[????]"
	}
}

// checkConfigFile reports on the config file. A missing file is only a
// warning because the built-in defaults are usable.
func checkConfigFile(cfgPath string, cfgErr error) func(context.Context, *config.Config) CheckResult {
	return func(context.Context, *config.Config) CheckResult {
		if cfgErr != nil {
			return CheckResult{
				Status:  StatusFail,
				Message: fmt.Sprintf("config error: %v", cfgErr),
				Fix:     fmt.Sprintf("Check the YAML syntax and values in %s", cfgPath),
			}
		}
		if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
			return CheckResult{
				Status:  StatusWarn,
				Message: fmt.Sprintf("no config file at %s, using defaults", cfgPath),
				Fix:     "Create the file to change the backend URL, storage or limits",
			}
		}
		return CheckResult{
			Status:  StatusPass,
			Message: fmt.Sprintf("config loaded from %s", cfgPath),
		}
	}
}

// checkStorage writes, reads back and deletes a scratch key.
func checkStorage(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	kv, err := openStorage(ctx, cfg.Storage)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("open %s storage: %v", cfg.Storage.Backend, err),
			Fix:     "Check storage.backend and that the data directory is writable",
		}
	}
	if c, ok := kv.(io.Closer); ok {
		defer c.Close()
	}

	want := []byte(`{"check":true}`)
	if err := kv.Put(ctx, doctorCheckKey, want); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("write failed: %v", err),
			Fix:     fmt.Sprintf("Make %s writable by the current user", cfg.Storage.DataDir),
		}
	}
	got, err := kv.Get(ctx, doctorCheckKey)
	_ = kv.Delete(ctx, doctorCheckKey)
	if err != nil || string(got) != string(want) {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("read back failed: %v", err),
		}
	}
	if cfg.Storage.Backend == "memory" {
		return CheckResult{
			Status:  StatusWarn,
			Message: "memory storage: history and sign-in are lost on exit",
			Fix:     "Set storage.backend to file or sqlite",
		}
	}
	msg := fmt.Sprintf("%s storage is writable", cfg.Storage.Backend)
	if cfg.Storage.Encrypt {
		msg += " (encrypted)"
	}
	return CheckResult{Status: StatusPass, Message: msg}
}

func checkBackendURL(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if err := domain.ValidateBaseURL(cfg.Backend.BaseURL); err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%q: %v", cfg.Backend.BaseURL, err),
			Fix:     "Set backend.base_url to an http(s) URL",
		}
	}
	return CheckResult{Status: StatusPass, Message: cfg.Backend.BaseURL}
}

func checkAPIKey(_ context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	if cfg.Backend.APIKey == "" {
		return CheckResult{Status: StatusPass, Message: "no API key configured (not required by default backends)"}
	}
	return CheckResult{Status: StatusPass, Message: "API key configured"}
}

// checkBackendConnectivity calls GET /health on the configured backend.
// Failure is a warning because demo mode works offline.
func checkBackendConnectivity(ctx context.Context, cfg *config.Config) CheckResult {
	if cfg == nil {
		return CheckResult{Status: StatusFail, Message: "cannot check, config not loaded"}
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	status, err := backend.NewClient(cfg.Backend, nil).Health(ctx)
	if err != nil {
		var apiErr *domain.APIError
		msg := err.Error()
		if errors.As(err, &apiErr) {
			msg = fmt.Sprintf("%s (%s)", apiErr.Message, apiErr.Code)
		}
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s unreachable: %s", cfg.Backend.BaseURL, msg),
			Fix:     "Start the backend, or keep demo mode on ('docaccess settings set demoMode true')",
		}
	}
	if status != "ok" {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("backend answered with status %q", status),
		}
	}
	return CheckResult{Status: StatusPass, Message: "backend is healthy"}
}
