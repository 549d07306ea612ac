package httpx

import (
	"encoding/json"
	"net/http"
)

// Middleware decorates an http.Handler.
type Middleware func(http.Handler) http.Handler

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// This is commonly required for sensitive responses like tokens.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
}

// ErrorBody is the error envelope the admin API returns. Message is a single
// string for general errors and a list for field validation failures.
type ErrorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    any    `json:"message"`
	Error      string `json:"error,omitempty"`
}

// WriteError writes an ErrorBody. One message is sent as a string, several
// as a list.
func WriteError(w http.ResponseWriter, code int, messages ...string) {
	body := ErrorBody{StatusCode: code, Error: http.StatusText(code)}
	switch len(messages) {
	case 0:
		body.Message = http.StatusText(code)
	case 1:
		body.Message = messages[0]
	default:
		body.Message = messages
	}
	WriteJSON(w, code, body)
}
