package app

import (
	"bytes"
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/aussiebroadwan/dhadmin/internal/credstore"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk/adminsdktest"
	"github.com/stretchr/testify/require"
)

func newTestApp(t *testing.T, api *adminsdktest.Server) (*Application, *bytes.Buffer) {
	t.Helper()

	var logs bytes.Buffer
	cfg := DefaultConfig(t.TempDir())
	cfg.APIURL = api.URL
	cfg.StoreDriver = credstore.DriverMemory
	cfg.LogLevel = "debug"
	cfg.LogOutput = &logs

	app, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, &logs
}

func TestApplicationSignInAndCall(t *testing.T) {
	api := adminsdktest.New(t, adminsdktest.Options{})
	app, logs := newTestApp(t, api)
	ctx := app.Context(context.Background())

	admin, err := app.SignIn(ctx, adminsdktest.DefaultEmail, adminsdktest.DefaultPassword)
	require.NoError(t, err)
	require.Equal(t, api.Admin.ID, admin.ID)

	stats, err := app.Session().DashboardStats(ctx)
	require.NoError(t, err)
	require.Zero(t, stats.TotalUsers)

	require.Contains(t, logs.String(), "http_request")
	require.Contains(t, logs.String(), "req_id=")
	require.NotContains(t, logs.String(), "Bearer", "tokens never reach the log")
}

func TestSessionExpiredIsPublished(t *testing.T) {
	api := adminsdktest.New(t, adminsdktest.Options{})
	app, _ := newTestApp(t, api)
	ctx := app.Context(context.Background())

	var (
		mu     sync.Mutex
		causes []error
	)
	require.NoError(t, app.OnSessionExpired(func(cause error) {
		mu.Lock()
		defer mu.Unlock()
		causes = append(causes, cause)
	}))

	_, err := app.SignIn(ctx, adminsdktest.DefaultEmail, adminsdktest.DefaultPassword)
	require.NoError(t, err)

	api.ExpireAccessTokens()
	api.RevokeRefreshTokens()

	_, err = app.Session().ListUsers(ctx, adminsdk.ListQuery{})
	apiErr, ok := adminsdk.AsAPIError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	mu.Lock()
	require.Len(t, causes, 1)
	require.True(t, adminsdk.IsKind(causes[0], adminsdk.KindUnauthorized))
	mu.Unlock()

	signedIn, err := app.Session().SignedIn(ctx)
	require.NoError(t, err)
	require.False(t, signedIn)
}

func TestNewFailsOnBadStore(t *testing.T) {
	cfg := DefaultConfig(t.TempDir())
	cfg.StoreDriver = "floppy"
	cfg.LogOutput = &bytes.Buffer{}

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}
