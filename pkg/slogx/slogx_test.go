package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestFromContext(t *testing.T) {
	t.Parallel()

	t.Run("falls back to default", func(t *testing.T) {
		t.Parallel()
		require.Equal(t, slog.Default(), FromContext(context.Background()))
	})

	t.Run("returns attached logger", func(t *testing.T) {
		t.Parallel()
		l := Discard()
		require.Same(t, l, FromContext(WithContext(context.Background(), l)))
	})
}

func TestTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	client := &http.Client{Transport: Transport(nil, Discard())}

	ctx := WithRequestID(WithContext(context.Background(), logger), "01TESTREQ")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/admin/users?page=2", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret-token")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["msg"])
	require.Equal(t, "01TESTREQ", entry["req_id"])
	require.Equal(t, float64(http.StatusTeapot), entry["status"])
	require.Contains(t, entry["url"], "/admin/users?page=2")
	require.NotContains(t, buf.String(), "secret-token")
}
