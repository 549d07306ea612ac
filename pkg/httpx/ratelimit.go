package httpx

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/slogx"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines the rate limiting parameters.
type RateLimitConfig struct {
	// RequestsPerWindow is the number of requests allowed in the time window
	RequestsPerWindow int
	// Window is the time window for rate limiting
	Window time.Duration
	// Burst allows for temporary bursts above the rate limit
	Burst int
}

// ClientLimit caps how fast one CLI process calls the admin API. Bulk
// scripts that loop over `dhadmin call` would otherwise trip the API's own
// throttling. Override with: RATELIMIT_CLIENT_REQUESTS,
// RATELIMIT_CLIENT_WINDOW_SEC, RATELIMIT_CLIENT_BURST
var ClientLimit = RateLimitConfig{
	RequestsPerWindow: 600,
	Window:            time.Minute,
	Burst:             20,
}

// ParseRateLimitFromEnv reads rate limit configuration from environment variables.
// Environment variables follow the pattern: RATELIMIT_{prefix}_{field}
// For example: RATELIMIT_CLIENT_REQUESTS, RATELIMIT_CLIENT_WINDOW_SEC, RATELIMIT_CLIENT_BURST
// Invalid or non-positive values keep the default.
func ParseRateLimitFromEnv(prefix string, defaultConfig RateLimitConfig) RateLimitConfig {
	config := defaultConfig

	if val := os.Getenv("RATELIMIT_" + prefix + "_REQUESTS"); val != "" {
		if requests, err := strconv.Atoi(val); err == nil && requests > 0 {
			config.RequestsPerWindow = requests
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_WINDOW_SEC"); val != "" {
		if windowSec, err := strconv.Atoi(val); err == nil && windowSec > 0 {
			config.Window = time.Duration(windowSec) * time.Second
		}
	}

	if val := os.Getenv("RATELIMIT_" + prefix + "_BURST"); val != "" {
		if burst, err := strconv.Atoi(val); err == nil && burst > 0 {
			config.Burst = burst
		}
	}

	return config
}

// Limit converts the config into a token-bucket rate.
func (c RateLimitConfig) Limit() rate.Limit {
	if c.RequestsPerWindow <= 0 || c.Window <= 0 {
		return rate.Inf
	}
	return rate.Limit(float64(c.RequestsPerWindow) / c.Window.Seconds())
}

// RateLimitTransport delays outbound requests so they never exceed config.
// Requests wait for a token rather than failing; a request whose context
// ends while waiting returns the context error without being sent.
func RateLimitTransport(base http.RoundTripper, config RateLimitConfig) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	burst := max(config.Burst, 1)
	return &rateLimitTransport{
		base:    base,
		limiter: rate.NewLimiter(config.Limit(), burst),
	}
}

type rateLimitTransport struct {
	base    http.RoundTripper
	limiter *rate.Limiter
}

func (t *rateLimitTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	reservation := t.limiter.Reserve()
	if delay := reservation.Delay(); delay > 0 {
		slogx.FromContext(ctx).Debug("rate limit: delaying request", "delay", delay)

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			reservation.Cancel()
			return nil, fmt.Errorf("rate limit wait: %w", ctx.Err())
		}
	}

	return t.base.RoundTrip(r)
}
