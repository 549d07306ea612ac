package app

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aussiebroadwan/dhadmin/internal/credstore"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/httpx"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	APIURL         string        // Admin API root including /api (default: http://localhost:3000/api)
	HTTPTimeout    time.Duration // Per-request timeout (default: 10s)
	RefreshTimeout time.Duration // Bound on one token refresh (default: 15s)

	StoreDriver   string // Credential store: file, sqlite, redis, memory (default: file)
	StorePath     string // Sealed credentials file (default: <config dir>/credentials)
	SQLiteFile    string // SQLite database (default: <config dir>/dhadmin.db)
	RedisAddr     string // Redis address, required for the redis driver
	RedisPassword string
	RedisDB       int
	RedisPrefix   string // Redis hash key (default: dhadmin:credentials)
	MasterKeyPath string // Master secret for the file driver (default: <config dir>/master.key)

	ConfigFile string // TOML file read before the environment (default: <config dir>/config.toml)

	Env       string // Environment (dev, prod) (default: prod)
	LogLevel  string // Log level (debug, info, warn, error) (default: warn)
	LogFormat string // Log format (json, text) (default: text)
	LogOutput io.Writer

	RateLimit httpx.RateLimitConfig
}

// fileConfig mirrors the keys accepted in config.toml.
type fileConfig struct {
	APIURL         string `toml:"api_url"`
	HTTPTimeout    string `toml:"http_timeout"`
	RefreshTimeout string `toml:"refresh_timeout"`
	LogLevel       string `toml:"log_level"`
	LogFormat      string `toml:"log_format"`

	Store struct {
		Driver        string `toml:"driver"`
		Path          string `toml:"path"`
		SQLiteFile    string `toml:"sqlite_file"`
		MasterKeyPath string `toml:"master_key"`
		RedisAddr     string `toml:"redis_addr"`
		RedisPassword string `toml:"redis_password"`
		RedisDB       *int   `toml:"redis_db"`
		RedisPrefix   string `toml:"redis_prefix"`
	} `toml:"store"`
}

// DefaultConfig returns the built-in settings, rooted at dir.
func DefaultConfig(dir string) Config {
	return Config{
		APIURL:         "http://localhost:3000/api",
		HTTPTimeout:    10 * time.Second,
		RefreshTimeout: adminsdk.DefaultRefreshTimeout,
		StoreDriver:    credstore.DriverFile,
		StorePath:      filepath.Join(dir, "credentials"),
		SQLiteFile:     filepath.Join(dir, "dhadmin.db"),
		MasterKeyPath:  filepath.Join(dir, "master.key"),
		ConfigFile:     filepath.Join(dir, "config.toml"),
		Env:            "prod",
		LogLevel:       "warn",
		LogFormat:      "text",
		RateLimit:      httpx.ClientLimit,
	}
}

// LoadConfig layers defaults, then the TOML file, then the environment
// (including a .env file in the working directory, if any).
func LoadConfig() (Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	cfg := DefaultConfig(filepath.Join(dir, "dhadmin"))
	cfg.ConfigFile = getEnvOrDefault("DH_CONFIG_FILE", cfg.ConfigFile)

	if err := cfg.applyFile(cfg.ConfigFile); err != nil {
		return Config{}, err
	}
	cfg.applyEnv()

	return cfg, nil
}

func (cfg *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	setString(&cfg.APIURL, fc.APIURL)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.StoreDriver, fc.Store.Driver)
	setString(&cfg.StorePath, fc.Store.Path)
	setString(&cfg.SQLiteFile, fc.Store.SQLiteFile)
	setString(&cfg.MasterKeyPath, fc.Store.MasterKeyPath)
	setString(&cfg.RedisAddr, fc.Store.RedisAddr)
	setString(&cfg.RedisPassword, fc.Store.RedisPassword)
	setString(&cfg.RedisPrefix, fc.Store.RedisPrefix)
	if fc.Store.RedisDB != nil {
		cfg.RedisDB = *fc.Store.RedisDB
	}

	if err := setDuration(&cfg.HTTPTimeout, fc.HTTPTimeout); err != nil {
		return fmt.Errorf("config file http_timeout: %w", err)
	}
	if err := setDuration(&cfg.RefreshTimeout, fc.RefreshTimeout); err != nil {
		return fmt.Errorf("config file refresh_timeout: %w", err)
	}
	return nil
}

func (cfg *Config) applyEnv() {
	cfg.APIURL = getEnvOrDefault("DH_API_URL", cfg.APIURL)
	cfg.HTTPTimeout = getEnvDurationOrDefault("DH_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.RefreshTimeout = getEnvDurationOrDefault("DH_REFRESH_TIMEOUT", cfg.RefreshTimeout)
	cfg.StoreDriver = getEnvOrDefault("DH_STORE_DRIVER", cfg.StoreDriver)
	cfg.StorePath = getEnvOrDefault("DH_STORE_PATH", cfg.StorePath)
	cfg.SQLiteFile = getEnvOrDefault("DH_SQLITE_FILE", cfg.SQLiteFile)
	cfg.RedisAddr = getEnvOrDefault("DH_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvOrDefault("DH_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvIntOrDefault("DH_REDIS_DB", cfg.RedisDB)
	cfg.RedisPrefix = getEnvOrDefault("DH_REDIS_PREFIX", cfg.RedisPrefix)
	cfg.MasterKeyPath = getEnvOrDefault("DH_MASTER_KEY", cfg.MasterKeyPath)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.RateLimit = httpx.ParseRateLimitFromEnv("CLIENT", cfg.RateLimit)
}

// StoreConfig translates the settings into a credential store config.
func (cfg Config) StoreConfig() credstore.Config {
	return credstore.Config{
		Driver:        cfg.StoreDriver,
		Path:          cfg.StorePath,
		KeyPath:       cfg.MasterKeyPath,
		DSN:           cfg.SQLiteFile,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		RedisKey:      cfg.RedisPrefix,
	}
}

func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

func setDuration(dst *time.Duration, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "30s", "1m")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
