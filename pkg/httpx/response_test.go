package httpx_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/httpx"
	"github.com/aussiebroadwan/dhadmin/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	t.Run("single message is a string", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteError(rec, http.StatusNotFound, "User not found")

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		require.JSONEq(t, `{"statusCode":404,"message":"User not found","error":"Not Found"}`, rec.Body.String())
	})

	t.Run("several messages are a list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteError(rec, http.StatusBadRequest, "email must be an email", "password is too short")

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, []any{"email must be an email", "password is too short"}, body["message"])
	})

	t.Run("no message falls back to status text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.WriteError(rec, http.StatusConflict)
		require.Contains(t, rec.Body.String(), `"message":"Conflict"`)
	})
}

func TestAuthnMiddleware(t *testing.T) {
	signer := jwtx.HS256{Secret: []byte("fake-api")}
	protected := httpx.AuthnMiddleware(signer)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := httpx.ClaimsFromContext(r.Context())
		require.True(t, ok)
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"sub": claims.Subject})
	}))

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/users", nil))

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "invalid_token")
		require.Contains(t, rec.Body.String(), `"statusCode":401`)
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewAccessClaims("a1", "", time.Minute, time.Now().Add(-time.Hour)))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewAccessClaims("a1", "", time.Minute, time.Now()))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		require.JSONEq(t, `{"sub":"a1"}`, rec.Body.String())
	})
}
