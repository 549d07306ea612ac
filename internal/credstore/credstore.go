// Package credstore selects and builds the persistent credential store used
// by the dhadmin command.
package credstore

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aussiebroadwan/dhadmin/internal/credstore/drivers/file"
	"github.com/aussiebroadwan/dhadmin/internal/credstore/drivers/redis"
	"github.com/aussiebroadwan/dhadmin/internal/credstore/drivers/sqlite"
	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/cryptox"
)

// Driver identifiers.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Store is a CredentialStore with a lifecycle.
type Store interface {
	adminsdk.CredentialStore

	Ping(ctx context.Context) error
	Close() error
}

// Config picks a driver and carries its settings. Only the fields of the
// chosen driver are read.
type Config struct {
	Driver string

	// file
	Path    string
	KeyPath string

	// sqlite
	DSN string

	// redis
	RedisAddr     string
	RedisUsername string
	RedisPassword string
	RedisDB       int
	RedisKey      string
}

// New builds the store described by cfg. An empty driver means memory.
func New(ctx context.Context, cfg Config) (Store, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	slog.Debug("opening credential store", "driver", driver)

	switch driver {
	case DriverMemory:
		return memoryStore{adminsdk.NewMemoryStore()}, nil

	case DriverFile:
		if cfg.KeyPath == "" {
			return nil, fmt.Errorf("file driver requires a key path")
		}
		secret, err := cryptox.LoadOrCreateKey(cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		return file.New(cfg.Path, secret)

	case DriverSQLite:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("sqlite driver requires a dsn")
		}
		s, err := sqlite.NewStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := s.ApplyMigrations(); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return s, nil

	case DriverRedis:
		return redis.New(ctx, redis.Config{
			Addr:     cfg.RedisAddr,
			Username: cfg.RedisUsername,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})

	default:
		return nil, fmt.Errorf("unsupported credential store driver: %s", driver)
	}
}

// memoryStore lends the SDK's MemoryStore a no-op lifecycle.
type memoryStore struct {
	*adminsdk.MemoryStore
}

func (memoryStore) Ping(context.Context) error { return nil }
func (memoryStore) Close() error               { return nil }
