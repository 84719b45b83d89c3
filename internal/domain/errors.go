package domain

import (
	"errors"
	"fmt"
)

// Category sentinels. Adapters wrap these so callers can branch with errors.Is.
var (
	ErrNotFound         = fmt.Errorf("not found")
	ErrDuplicate        = fmt.Errorf("duplicate")
	ErrTimeout          = fmt.Errorf("operation timed out")
	ErrInvalidInput     = fmt.Errorf("invalid input")
	ErrProviderError    = fmt.Errorf("provider error")
	ErrPermissionDenied = fmt.Errorf("permission denied")
)

// Sentinel errors for the client core.
var (
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrNotAuthenticated   = fmt.Errorf("not authenticated")
	ErrNotHydrated        = fmt.Errorf("state not hydrated")
	ErrNoDocument         = fmt.Errorf("no current document")
	ErrBusy               = fmt.Errorf("a document is already being processed")
	ErrConfigLoad         = fmt.Errorf("failed to load configuration")
	ErrDecryption         = fmt.Errorf("decryption failed")
	ErrEncryption         = fmt.Errorf("encryption operation failed")

	// Client-side validation errors. These never reach the backend.
	ErrEmptyText        = fmt.Errorf("%w: text is empty", ErrInvalidInput)
	ErrTextTooLong      = fmt.Errorf("%w: text is too long", ErrInvalidInput)
	ErrFileTooLarge     = fmt.Errorf("%w: file is too large", ErrInvalidInput)
	ErrUnsupportedFile  = fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	ErrEmptyAudio       = fmt.Errorf("%w: audio recording is empty", ErrInvalidInput)
	ErrUnknownDomain    = fmt.Errorf("%w: unknown document domain", ErrInvalidInput)
	ErrUnknownTheme     = fmt.Errorf("%w: unknown theme", ErrInvalidInput)
	ErrUnknownSetting   = fmt.Errorf("%w: unknown setting", ErrInvalidInput)
	ErrInvalidBaseURL   = fmt.Errorf("%w: invalid backend URL", ErrInvalidInput)
	ErrEmptyChatMessage = fmt.Errorf("%w: message is empty", ErrInvalidInput)

	// Remote service errors. APIError unwraps to one of these.
	ErrNetwork       = fmt.Errorf("network error")
	ErrAuthInvalid   = fmt.Errorf("authentication failed")
	ErrRateLimit     = fmt.Errorf("rate limit exceeded")
	ErrCircuitOpen   = fmt.Errorf("backend temporarily unavailable")
	ErrBadResponse   = fmt.Errorf("malformed backend response")
	ErrBackendFailed = fmt.Errorf("%w: backend request failed", ErrProviderError)
)

// DomainError wraps a sentinel error with context.
type DomainError struct {
	Op     string // operation name (e.g., "App.Login")
	Err    error  // underlying sentinel or wrapped error
	Detail string // human-readable detail
}

func (e *DomainError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Detail, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

// NewDomainError creates a new DomainError.
func NewDomainError(op string, err error, detail string) *DomainError {
	return &DomainError{Op: op, Err: err, Detail: detail}
}

// WrapOp adds operation context to an error using fmt.Errorf wrapping.
// Returns nil if err is nil, enabling idiomatic use: return domain.WrapOp("op", err)
func WrapOp(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// IsRetryableError reports whether err is a transient error that may succeed on retry.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrRateLimit) || errors.Is(err, ErrCircuitOpen)
}

// ErrorCode is a machine-parseable error category.
type ErrorCode string

const (
	CodeUnknown            ErrorCode = "UNKNOWN"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeDuplicate          ErrorCode = "DUPLICATE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeInvalidInput       ErrorCode = "INVALID_INPUT"
	CodeProviderError      ErrorCode = "PROVIDER_ERROR"
	CodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	CodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	CodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	CodeNotHydrated        ErrorCode = "NOT_HYDRATED"
	CodeNoDocument         ErrorCode = "NO_DOCUMENT"
	CodeBusy               ErrorCode = "BUSY"
	CodeConfigLoad         ErrorCode = "CONFIG_LOAD"
	CodeDecryption         ErrorCode = "DECRYPTION"
	CodeEncryption         ErrorCode = "ENCRYPTION"
	CodeNetwork            ErrorCode = "NETWORK_ERROR"
	CodeAuthInvalid        ErrorCode = "AUTH_INVALID"
	CodeRateLimit          ErrorCode = "RATE_LIMIT"
	CodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	CodeBadResponse        ErrorCode = "BAD_RESPONSE"
)

// errorCodeOrder maps sentinel errors to their machine-parseable codes.
// Specific sentinels are listed before the categories they wrap so the
// errors.Is walk in ErrorCodeOf prefers them.
var errorCodeOrder = []struct {
	err  error
	code ErrorCode
}{
	{ErrInvalidCredentials, CodeInvalidCredentials},
	{ErrNotAuthenticated, CodeNotAuthenticated},
	{ErrNotHydrated, CodeNotHydrated},
	{ErrNoDocument, CodeNoDocument},
	{ErrBusy, CodeBusy},
	{ErrConfigLoad, CodeConfigLoad},
	{ErrDecryption, CodeDecryption},
	{ErrEncryption, CodeEncryption},
	{ErrNetwork, CodeNetwork},
	{ErrAuthInvalid, CodeAuthInvalid},
	{ErrRateLimit, CodeRateLimit},
	{ErrCircuitOpen, CodeCircuitOpen},
	{ErrBadResponse, CodeBadResponse},
	{ErrNotFound, CodeNotFound},
	{ErrDuplicate, CodeDuplicate},
	{ErrTimeout, CodeTimeout},
	{ErrInvalidInput, CodeInvalidInput},
	{ErrProviderError, CodeProviderError},
	{ErrPermissionDenied, CodePermissionDenied},
}

// ErrorCodeOf returns the machine-parseable error code for the given error.
// An *APIError anywhere in the chain wins, since it already carries the code
// the backend boundary assigned. Returns CodeUnknown if nothing matches.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return CodeUnknown
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Code != "" {
		return ErrorCode(apiErr.Code)
	}

	for _, entry := range errorCodeOrder {
		if errors.Is(err, entry.err) {
			return entry.code
		}
	}
	return CodeUnknown
}

// Code returns the ErrorCode for this DomainError's underlying sentinel.
func (e *DomainError) Code() ErrorCode {
	return ErrorCodeOf(e.Err)
}

// ErrorMessage extracts a display message from any error. APIError messages are
// shown verbatim; everything else falls back to fallback when err carries no text.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}
