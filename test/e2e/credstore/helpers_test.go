//go:build e2e

package credstore_test

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/aussiebroadwan/dhadmin/internal/app"
	"github.com/aussiebroadwan/dhadmin/internal/credstore"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk/adminsdktest"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * End-to-end tests for the redis credential store: a real redis server in a
 * container, the fake admin API in-process, and the full application wiring
 * in between.
 */

const redisImage = "redis:7-alpine"

// setupRedisContainer starts redis and returns its address.
func setupRedisContainer(t *testing.T) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        redisImage,
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: wait.ForLog("Ready to accept connections").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	mappedPort, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	return fmt.Sprintf("%s:%s", host, mappedPort.Port())
}

// newRedisApp builds an application that keeps its session in redis under key.
func newRedisApp(t *testing.T, api *adminsdktest.Server, addr, key string) *app.Application {
	t.Helper()

	cfg := app.DefaultConfig(t.TempDir())
	cfg.APIURL = api.URL
	cfg.StoreDriver = credstore.DriverRedis
	cfg.RedisAddr = addr
	cfg.RedisPrefix = key
	cfg.LogOutput = io.Discard

	a, err := app.New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}
