package slogx

import (
	"log/slog"
	"net/http"
	"time"
)

// Transport wraps base with request logging. Each outbound request is logged
// once it completes, using the logger carried by the request context (see
// WithContext) or fallback when there is none.
//
// Authorization headers are never logged.
func Transport(base http.RoundTripper, fallback *slog.Logger) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	if fallback == nil {
		fallback = slog.Default()
	}
	return &loggingTransport{base: base, fallback: fallback}
}

type loggingTransport struct {
	base     http.RoundTripper
	fallback *slog.Logger
}

func (t *loggingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	logger := t.fallback
	if l, ok := r.Context().Value(ctxKey{}).(*slog.Logger); ok {
		logger = l
	}

	start := time.Now()
	resp, err := t.base.RoundTrip(r)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		logger.Debug("http_request",
			"method", r.Method,
			"url", r.URL.Redacted(),
			"duration_ms", duration,
			"error", err,
		)
		return nil, err
	}

	logger.Debug("http_request",
		"method", r.Method,
		"url", r.URL.Redacted(),
		"status", resp.StatusCode,
		"duration_ms", duration,
	)
	return resp, nil
}
