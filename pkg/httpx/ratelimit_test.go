package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/httpx"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func countingTransport(calls *atomic.Int32) http.RoundTripper {
	return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		calls.Add(1)
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       http.NoBody,
			Request:    r,
		}, nil
	})
}

func TestParseRateLimitFromEnv(t *testing.T) {
	def := httpx.RateLimitConfig{RequestsPerWindow: 10, Window: time.Minute, Burst: 2}

	t.Run("uses defaults when unset", func(t *testing.T) {
		require.Equal(t, def, httpx.ParseRateLimitFromEnv("UNSET_PREFIX", def))
	})

	t.Run("overrides from env", func(t *testing.T) {
		t.Setenv("RATELIMIT_TESTCLIENT_REQUESTS", "50")
		t.Setenv("RATELIMIT_TESTCLIENT_WINDOW_SEC", "5")
		t.Setenv("RATELIMIT_TESTCLIENT_BURST", "7")

		got := httpx.ParseRateLimitFromEnv("TESTCLIENT", def)
		require.Equal(t, 50, got.RequestsPerWindow)
		require.Equal(t, 5*time.Second, got.Window)
		require.Equal(t, 7, got.Burst)
	})

	t.Run("ignores invalid values", func(t *testing.T) {
		t.Setenv("RATELIMIT_BADCLIENT_REQUESTS", "-3")
		t.Setenv("RATELIMIT_BADCLIENT_WINDOW_SEC", "soon")
		t.Setenv("RATELIMIT_BADCLIENT_BURST", "0")

		require.Equal(t, def, httpx.ParseRateLimitFromEnv("BADCLIENT", def))
	})
}

func TestRateLimitConfigLimit(t *testing.T) {
	cfg := httpx.RateLimitConfig{RequestsPerWindow: 120, Window: time.Minute}
	require.Equal(t, rate.Limit(2), cfg.Limit())

	require.Equal(t, rate.Inf, httpx.RateLimitConfig{}.Limit())
}

func TestRateLimitTransport(t *testing.T) {
	t.Run("burst passes immediately", func(t *testing.T) {
		var calls atomic.Int32
		rt := httpx.RateLimitTransport(countingTransport(&calls), httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Hour,
			Burst:             3,
		})

		start := time.Now()
		for range 3 {
			req := httptest.NewRequest(http.MethodGet, "http://api.test/admin/users", nil)
			resp, err := rt.RoundTrip(req)
			require.NoError(t, err)
			resp.Body.Close()
		}
		require.Less(t, time.Since(start), time.Second)
		require.EqualValues(t, 3, calls.Load())
	})

	t.Run("over limit waits and gives up with the context", func(t *testing.T) {
		var calls atomic.Int32
		rt := httpx.RateLimitTransport(countingTransport(&calls), httpx.RateLimitConfig{
			RequestsPerWindow: 1,
			Window:            time.Hour,
			Burst:             1,
		})

		req := httptest.NewRequest(http.MethodGet, "http://api.test/admin/users", nil)
		resp, err := rt.RoundTrip(req)
		require.NoError(t, err)
		resp.Body.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err = rt.RoundTrip(req.WithContext(ctx))
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.EqualValues(t, 1, calls.Load(), "the throttled request must not be sent")
	})

	t.Run("default client limit is sane", func(t *testing.T) {
		require.Greater(t, httpx.ClientLimit.RequestsPerWindow, 0)
		require.Greater(t, httpx.ClientLimit.Window, time.Duration(0))
		require.Greater(t, httpx.ClientLimit.Burst, 0)
	})
}

func TestChainTransport(t *testing.T) {
	var order []string
	tag := func(name string) httpx.TransportMiddleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(r)
			})
		}
	}

	var calls atomic.Int32
	rt := httpx.ChainTransport(countingTransport(&calls), tag("outer"), tag("inner"))

	resp, err := rt.RoundTrip(httptest.NewRequest(http.MethodGet, "http://api.test/", nil))
	require.NoError(t, err)
	resp.Body.Close()

	require.Equal(t, []string{"outer", "inner"}, order)
	require.EqualValues(t, 1, calls.Load())
}
