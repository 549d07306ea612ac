package adminsdk

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// NetworkErrorMessage is the message carried by every network-kind APIError.
const NetworkErrorMessage = "connection error, check your network"

// ============================================================================
// Error kinds
// ============================================================================

// Kind classifies an APIError so callers can branch without inspecting codes.
type Kind string

const (
	KindNetwork      Kind = "network"      // no response reached the client
	KindUnauthorized Kind = "unauthorized" // 401/403 after any refresh attempt
	KindValidation   Kind = "validation"   // 400/422, may carry several messages
	KindNotFound     Kind = "not_found"    // 404
	KindConflict     Kind = "conflict"     // 409, e.g. duplicate resource
	KindServer       Kind = "server"       // 5xx
	KindUnknown      Kind = "unknown"
)

// KindForStatus derives the error kind from an HTTP status code.
func KindForStatus(status int) Kind {
	switch {
	case status == 0:
		return KindNetwork
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindUnauthorized
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status >= 500 && status < 600:
		return KindServer
	default:
		return KindUnknown
	}
}

// ============================================================================
// APIError - the typed error returned by every SDK operation
// ============================================================================

// APIError is the normalized form of any transport or server failure.
// It is never mutated after construction.
type APIError struct {
	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Messages holds one or more human-readable messages, in server order.
	Messages []string

	// Code is the server's short error name (e.g. "Bad Request"), if any.
	Code string

	// Kind is derived from StatusCode.
	Kind Kind

	// Err is the underlying transport error for network-kind errors.
	Err error
}

// Error implements the error interface. It returns the first message.
func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return e.Messages[0]
}

// Unwrap exposes the transport cause of network errors.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Banner returns the message to show as a general error.
func (e *APIError) Banner() string {
	return e.Error()
}

// FieldErrors returns every message when the server reported more than one,
// each to be displayed independently. A single-message error has no field
// errors and is shown as a banner only.
func (e *APIError) FieldErrors() []string {
	if len(e.Messages) < 2 {
		return nil
	}
	out := make([]string, len(e.Messages))
	copy(out, e.Messages)
	return out
}

// AsAPIError unwraps err into an *APIError if it holds one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsKind reports whether err is an *APIError of the given kind.
func IsKind(err error, kind Kind) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Kind == kind
}

// ============================================================================
// Error Parsing Helpers
// ============================================================================

// messageList accepts both "message": "x" and "message": ["x", "y"].
// Null and blank messages are dropped.
type messageList []string

func (m *messageList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var many []string
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*m = nonBlank(many)
		return nil
	}

	var one string
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*m = nonBlank([]string{one})
	return nil
}

func nonBlank(in []string) messageList {
	var out messageList
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// errorBody is the default error shape returned by the admin API:
//
//	{"statusCode": 400, "message": ["email must be valid"], "error": "Bad Request"}
type errorBody struct {
	StatusCode int         `json:"statusCode"`
	Message    messageList `json:"message"`
	Error      string      `json:"error"`
}

// NetworkError builds the error for a request that never got a response.
func NetworkError(cause error) *APIError {
	return &APIError{
		StatusCode: 0,
		Messages:   []string{NetworkErrorMessage},
		Code:       "NetworkError",
		Kind:       KindNetwork,
		Err:        cause,
	}
}

// NormalizeResponse converts a non-2xx response into an *APIError.
// Structured bodies keep their messages verbatim; anything else falls back to
// the HTTP status text.
func NormalizeResponse(status int, body []byte) *APIError {
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && len(parsed.Message) > 0 {
		code := parsed.StatusCode
		if code == 0 {
			code = status
		}
		return &APIError{
			StatusCode: code,
			Messages:   []string(parsed.Message),
			Code:       parsed.Error,
			Kind:       KindForStatus(code),
		}
	}

	// Fallback: create generic error from status code
	text := http.StatusText(status)
	if text == "" {
		text = fmt.Sprintf("HTTP %d", status)
	}
	return &APIError{
		StatusCode: status,
		Messages:   []string{text},
		Code:       text,
		Kind:       KindForStatus(status),
	}
}
