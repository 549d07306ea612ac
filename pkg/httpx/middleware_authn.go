package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/aussiebroadwan/dhadmin/pkg/jwtx"
	"github.com/aussiebroadwan/dhadmin/pkg/slogx"
)

type ctxKey string

const CtxKeyClaims ctxKey = "claims"

// ClaimsFromContext returns the claims stored by AuthnMiddleware.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// Verifier validates a bearer token and returns its claims.
type Verifier interface {
	Verify(token string) (jwtx.Claims, error)
}

// AuthnMiddleware rejects requests without a valid bearer token with the
// API's 401 error body.
func AuthnMiddleware(v Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Verify(raw)
			if err != nil {
				log.Debug("bearer token rejected", "err", err)
				writeBearerError(w, err.Error())
				return
			}

			ctx = context.WithValue(ctx, CtxKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750 challenge plus the API's JSON error body.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "Unauthorized")
}
