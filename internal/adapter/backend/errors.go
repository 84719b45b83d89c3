package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"docaccess/internal/domain"
)

// networkErrorMessage is shown when no response was received at all.
const networkErrorMessage = "Network Error"

// networkError normalises a transport failure (no HTTP response).
func networkError(cause error) *domain.APIError {
	return domain.NewAPIError(string(domain.CodeNetwork), networkErrorMessage, 0, nil, cause)
}

// normalizeError turns a non-2xx response into an APIError. The message is
// taken from the body's "detail" field, else a plain-text body, else a
// generic status line. Details keep the raw body.
func normalizeError(status int, body []byte) *domain.APIError {
	return domain.NewAPIError(domain.HTTPErrorCode(status), errorMessage(status, body), status, body, nil)
}

func errorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)

	if len(trimmed) > 0 && json.Valid(trimmed) {
		var payload struct {
			Detail json.RawMessage `json:"detail"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil && len(payload.Detail) > 0 && string(payload.Detail) != "null" {
			var s string
			if json.Unmarshal(payload.Detail, &s) == nil {
				return s
			}
			// Structured detail, e.g. a list of validation errors.
			return string(payload.Detail)
		}
		// A bare JSON string body is still a text message.
		var s string
		if json.Unmarshal(trimmed, &s) == nil && s != "" {
			return s
		}
		return fmt.Sprintf("Request failed with status code %d", status)
	}

	if text := strings.TrimSpace(string(trimmed)); text != "" {
		return text
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}

// badResponse reports a 2xx body that did not decode into the expected shape.
func badResponse(path string, cause error) *domain.APIError {
	return domain.NewAPIError(string(domain.CodeBadResponse), "unexpected response from "+path, 0, nil, cause)
}

// circuitOpen reports a call short-circuited by the breaker.
func circuitOpen(cause error) *domain.APIError {
	return domain.NewAPIError(string(domain.CodeCircuitOpen), "backend temporarily unavailable, try again shortly", 0, nil, cause)
}
