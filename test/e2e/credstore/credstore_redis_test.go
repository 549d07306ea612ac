//go:build e2e

package credstore_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk/adminsdktest"
	"github.com/stretchr/testify/require"
)

// TestSessionSharedThroughRedis tests the complete flow:
// 1. Sign in with one application instance
// 2. Resume the session from a second instance reading the same redis key
// 3. Expire the access token and let concurrent calls share one refresh
// 4. Verify the rotated tokens are visible to the first instance
func TestSessionSharedThroughRedis(t *testing.T) {
	addr := setupRedisContainer(t)
	api := adminsdktest.New(t, adminsdktest.Options{})

	first := newRedisApp(t, api, addr, "dhadmin:e2e:shared")
	ctx := first.Context(context.Background())

	_, err := first.SignIn(ctx, adminsdktest.DefaultEmail, adminsdktest.DefaultPassword)
	require.NoError(t, err)

	second := newRedisApp(t, api, addr, "dhadmin:e2e:shared")
	identity, err := second.Session().Identity(ctx)
	require.NoError(t, err)
	require.NotNil(t, identity)
	require.Equal(t, api.Admin.ID, identity.ID)

	before, err := second.Store().Load(ctx)
	require.NoError(t, err)

	api.ExpireAccessTokens()
	release := api.HoldRefresh()

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := second.Session().ListUsers(ctx, adminsdk.ListQuery{})
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return api.Unauthorized() == n }, 10*time.Second, 10*time.Millisecond)
	release()

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, 1, api.RefreshCalls(), "one refresh for the whole batch")

	after, err := first.Store().Load(ctx)
	require.NoError(t, err)
	require.NotEqual(t, before.AccessToken, after.AccessToken)
	require.NotEqual(t, before.RefreshToken, after.RefreshToken)

	_, err = first.Session().DashboardStats(ctx)
	require.NoError(t, err, "the first instance picks up the rotated token")
	require.Equal(t, 1, api.RefreshCalls())
}

// TestRevokedSessionClearsRedis verifies that a rejected refresh removes the
// credentials from redis and notifies subscribers.
func TestRevokedSessionClearsRedis(t *testing.T) {
	addr := setupRedisContainer(t)
	api := adminsdktest.New(t, adminsdktest.Options{})

	a := newRedisApp(t, api, addr, "dhadmin:e2e:revoked")
	ctx := a.Context(context.Background())

	expired := make(chan error, 1)
	require.NoError(t, a.OnSessionExpired(func(cause error) { expired <- cause }))

	_, err := a.SignIn(ctx, adminsdktest.DefaultEmail, adminsdktest.DefaultPassword)
	require.NoError(t, err)

	api.ExpireAccessTokens()
	api.RevokeRefreshTokens()

	_, err = a.Session().ListUsers(ctx, adminsdk.ListQuery{})
	require.True(t, adminsdk.IsKind(err, adminsdk.KindUnauthorized), "got %v", err)
	require.True(t, adminsdk.IsKind(<-expired, adminsdk.KindUnauthorized))

	_, err = a.Store().Load(ctx)
	require.ErrorIs(t, err, adminsdk.ErrNoCredentials)
}

// TestKeysIsolateConsoles verifies two consoles can share one redis server.
func TestKeysIsolateConsoles(t *testing.T) {
	addr := setupRedisContainer(t)
	api := adminsdktest.New(t, adminsdktest.Options{})

	a := newRedisApp(t, api, addr, "dhadmin:e2e:a")
	b := newRedisApp(t, api, addr, "dhadmin:e2e:b")
	ctx := context.Background()

	_, err := a.SignIn(ctx, adminsdktest.DefaultEmail, adminsdktest.DefaultPassword)
	require.NoError(t, err)

	signedIn, err := b.Session().SignedIn(ctx)
	require.NoError(t, err)
	require.False(t, signedIn)

	require.NoError(t, a.Session().SignOut(ctx))
	require.Equal(t, 1, api.SignOutCalls())
}
