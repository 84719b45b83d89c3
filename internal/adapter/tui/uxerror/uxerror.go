// Package uxerror translates raw errors into user-friendly messages with
// recovery hints for the terminal UI and the CLI.
package uxerror

import (
	"errors"
	"fmt"
	"strings"

	"docaccess/internal/adapter/tui/theme"
	"docaccess/internal/domain"
)

// FriendlyError is a user-facing error with suggestions for recovery.
type FriendlyError struct {
	Title   string   // short heading, e.g. "Backend Unreachable"
	Message string   // one-liner explanation
	Hints   []string // actionable recovery suggestions
	Raw     string   // original error text (for debug)
}

// Render formats the FriendlyError for display.
func (fe FriendlyError) Render() string {
	var sb strings.Builder
	sb.WriteString(fe.Title)
	if fe.Message != "" {
		sb.WriteString("\n  ")
		sb.WriteString(fe.Message)
	}
	if len(fe.Hints) > 0 {
		sb.WriteString("\n  Suggestions:")
		for _, h := range fe.Hints {
			sb.WriteString(fmt.Sprintf("\n    %s %s", theme.SymbolBullet, h))
		}
	}
	return sb.String()
}

type errorPattern struct {
	match   func(err error) bool
	produce func(err error) FriendlyError
}

var patterns = []errorPattern{
	// Client-side validation and state errors.
	{
		match:   is(domain.ErrNotAuthenticated),
		produce: constantError("Not Signed In", "Sign in or continue as a guest first.", []string{"Run 'docaccess login <email>'", "Run 'docaccess guest'"}),
	},
	{
		match:   is(domain.ErrInvalidCredentials),
		produce: constantError("Sign-in Failed", "Email and password are both required.", nil),
	},
	{
		match:   is(domain.ErrNoDocument),
		produce: constantError("No Document Selected", "Open a document before asking questions about it.", []string{"Run 'docaccess history' and 'docaccess select <id>'", "Process a new document with 'docaccess process'"}),
	},
	{
		match:   is(domain.ErrBusy),
		produce: constantError("Still Processing", "Another document is being processed.", []string{"Wait for it to finish and try again"}),
	},
	{
		match:   is(domain.ErrTextTooLong),
		produce: messageError("Text Too Long", []string{"Split the document into smaller parts", "Raise limits.max_text_length in config"}),
	},
	{
		match:   is(domain.ErrFileTooLarge),
		produce: messageError("File Too Large", []string{"Compress or crop the file", "Raise the size limit in config"}),
	},
	{
		match:   is(domain.ErrUnsupportedFile),
		produce: messageError("Unsupported File", []string{"Use a JPEG, PNG, WEBP, TIFF image or a PDF"}),
	},
	{
		match:   is(domain.ErrInvalidBaseURL),
		produce: messageError("Invalid Backend URL", []string{"Use an absolute http:// or https:// address"}),
	},
	{
		match:   is(domain.ErrInvalidInput),
		produce: messageError("Invalid Input", nil),
	},

	// Backend failures, classified by the API error category.
	{
		match:   is(domain.ErrCircuitOpen),
		produce: constantError("Backend Temporarily Unavailable", "Recent requests failed, so calls are paused for a moment.", []string{"Wait 30 seconds and try again", "Switch on demo mode: 'docaccess set demoMode true'"}),
	},
	{
		match:   is(domain.ErrNetwork),
		produce: constantError("Backend Unreachable", "Could not reach the document service.", []string{"Check that the backend is running", "Verify the backend URL: 'docaccess settings'", "Switch on demo mode: 'docaccess set demoMode true'"}),
	},
	{
		match:   is(domain.ErrTimeout),
		produce: constantError("Request Timed Out", "The document service took too long to respond.", []string{"Try a shorter document", "Increase backend.timeout in config"}),
	},
	{
		match:   is(domain.ErrAuthInvalid),
		produce: constantError("Backend Rejected Credentials", "The API key was not accepted.", []string{"Check backend.api_key or DOCACCESS_BACKEND_API_KEY"}),
	},
	{
		match:   is(domain.ErrRateLimit),
		produce: constantError("Rate Limited", "Too many requests were sent to the document service.", []string{"Wait a moment before retrying"}),
	},
	{
		match:   is(domain.ErrBadResponse),
		produce: constantError("Unexpected Response", "The document service replied in an unexpected format.", []string{"Check that the backend URL points at the document service"}),
	},
	{
		match:   is(domain.ErrProviderError),
		produce: messageError("Processing Failed", []string{"Try again", "Check the backend logs"}),
	},

	// Errors that never went through the API layer.
	{
		match:   containsAny("connection refused", "dial tcp", "no such host"),
		produce: constantError("Connection Failed", "Could not reach the remote service.", []string{"Check your network connection", "Verify the backend URL in config"}),
	},
	{
		match:   containsAny("deadline exceeded", "timeout"),
		produce: constantError("Request Timed Out", "The request took too long to complete.", []string{"Check your network connection", "Increase backend.timeout in config"}),
	},
}

// Humanize converts a raw error into a FriendlyError with recovery hints.
func Humanize(err error) FriendlyError {
	if err == nil {
		return FriendlyError{Title: "Unknown Error", Raw: "nil"}
	}

	for _, p := range patterns {
		if p.match(err) {
			return p.produce(err)
		}
	}

	return FriendlyError{
		Title:   "Unexpected Error",
		Message: domain.ErrorMessage(err, "Something went wrong"),
		Hints:   []string{"Try again", "Run with DOCACCESS_LOGGER_LEVEL=debug for more details"},
		Raw:     err.Error(),
	}
}

func is(target error) func(error) bool {
	return func(err error) bool { return errors.Is(err, target) }
}

// containsAny returns a match func that checks if the error string contains
// any of the given substrings (case-insensitive).
func containsAny(substrs ...string) func(error) bool {
	return func(err error) bool {
		lower := strings.ToLower(err.Error())
		for _, s := range substrs {
			if strings.Contains(lower, s) {
				return true
			}
		}
		return false
	}
}

// constantError returns a produce func that always returns the same FriendlyError.
func constantError(title, message string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: message,
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}

// messageError keeps the error's own display message, which for backend
// errors is the server's detail text.
func messageError(title string, hints []string) func(error) FriendlyError {
	return func(err error) FriendlyError {
		return FriendlyError{
			Title:   title,
			Message: domain.ErrorMessage(err, ""),
			Hints:   hints,
			Raw:     err.Error(),
		}
	}
}
