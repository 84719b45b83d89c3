package domain

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is the uniform failure shape surfaced by the remote service adapter.
// Every backend failure reaches callers as an *APIError carrying at least a
// message and a code.
type APIError struct {
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Status  int             `json:"status,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`

	cause error
}

// NewAPIError builds an APIError wrapping cause for errors.Is matching.
func NewAPIError(code, message string, status int, details []byte, cause error) *APIError {
	e := &APIError{Message: message, Code: code, Status: status, cause: cause}
	if len(details) > 0 && json.Valid(details) {
		e.Details = json.RawMessage(details)
	} else if len(details) > 0 {
		raw, _ := json.Marshal(string(details))
		e.Details = raw
	}
	return e
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the category sentinel (and the transport error, if any).
func (e *APIError) Unwrap() []error {
	errs := []error{e.category()}
	if e.cause != nil {
		errs = append(errs, e.cause)
	}
	return errs
}

func (e *APIError) category() error {
	switch {
	case e.Code == string(CodeNetwork):
		return ErrNetwork
	case e.Code == string(CodeCircuitOpen):
		return ErrCircuitOpen
	case e.Code == string(CodeBadResponse):
		return ErrBadResponse
	case e.Status == http.StatusNotFound:
		return ErrNotFound
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ErrAuthInvalid
	case e.Status == http.StatusTooManyRequests:
		return ErrRateLimit
	case e.Status == http.StatusRequestTimeout || e.Status == http.StatusGatewayTimeout:
		return ErrTimeout
	case e.Status == http.StatusBadRequest || e.Status == http.StatusUnprocessableEntity:
		return ErrInvalidInput
	default:
		return ErrBackendFailed
	}
}

// HTTPErrorCode returns the code used for a non-2xx response.
func HTTPErrorCode(status int) string {
	return fmt.Sprintf("HTTP_%d", status)
}
