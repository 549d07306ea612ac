package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/dhadmin/internal/credstore"
	"github.com/stretchr/testify/require"
)

// isolate points every config source at a temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DH_CONFIG_FILE", filepath.Join(dir, "config.toml"))
	for _, key := range []string{
		"DH_API_URL", "DH_HTTP_TIMEOUT", "DH_REFRESH_TIMEOUT", "DH_STORE_DRIVER",
		"DH_STORE_PATH", "DH_SQLITE_FILE", "DH_REDIS_ADDR", "DH_REDIS_PASSWORD",
		"DH_REDIS_DB", "DH_REDIS_PREFIX", "DH_MASTER_KEY", "ENV", "LOG_LEVEL", "LOG_FORMAT",
		"RATELIMIT_CLIENT_REQUESTS", "RATELIMIT_CLIENT_WINDOW_SEC", "RATELIMIT_CLIENT_BURST",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "http://localhost:3000/api", cfg.APIURL)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 15*time.Second, cfg.RefreshTimeout)
	require.Equal(t, credstore.DriverFile, cfg.StoreDriver)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 600, cfg.RateLimit.RequestsPerWindow)
	require.Equal(t, "credentials", filepath.Base(cfg.StorePath))
}

func TestLoadConfigFileThenEnvironment(t *testing.T) {
	dir := isolate(t)

	toml := `
api_url = "https://admin.directhealth.example/api"
http_timeout = "30s"
refresh_timeout = "5s"
log_level = "debug"

[store]
driver = "redis"
redis_addr = "cache:6379"
redis_db = 2
redis_prefix = "ops:creds"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0o600))

	t.Setenv("DH_API_URL", "http://staging.internal/api")
	t.Setenv("DH_REFRESH_TIMEOUT", "7")
	t.Setenv("RATELIMIT_CLIENT_BURST", "3")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "http://staging.internal/api", cfg.APIURL, "environment wins over the file")
	require.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 7*time.Second, cfg.RefreshTimeout, "bare integers are seconds")
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3, cfg.RateLimit.Burst)

	sc := cfg.StoreConfig()
	require.Equal(t, credstore.DriverRedis, sc.Driver)
	require.Equal(t, "cache:6379", sc.RedisAddr)
	require.Equal(t, 2, sc.RedisDB)
	require.Equal(t, "ops:creds", sc.RedisKey)
}

func TestLoadConfigRejectsBadFile(t *testing.T) {
	dir := isolate(t)

	t.Run("syntax", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("api_url = "), 0o600))
		_, err := LoadConfig()
		require.Error(t, err)
	})

	t.Run("duration", func(t *testing.T) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`http_timeout = "soon"`), 0o600))
		_, err := LoadConfig()
		require.Error(t, err)
	})
}
