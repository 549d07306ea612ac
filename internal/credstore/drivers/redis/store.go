package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	goredis "github.com/redis/go-redis/v9"
)

// DefaultKey is used when Config.Key is empty.
const DefaultKey = "dhadmin:credentials"

const (
	fieldAccess   = "access_token"
	fieldRefresh  = "refresh_token"
	fieldIdentity = "identity"
)

// Config holds the connection settings.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	// Key is the hash holding the credentials. Use distinct keys to keep
	// several consoles apart on one server.
	Key string
}

// Store keeps credentials in a single redis hash. Writes go through
// MULTI/EXEC or a script, so readers never see a half-written pair.
type Store struct {
	client *goredis.Client
	key    string
}

var _ adminsdk.CredentialStore = (*Store)(nil)

// setIdentity only touches an existing hash: identity without tokens is
// meaningless.
var setIdentity = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// New connects and pings the server.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address required")
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}, nil
}

func (s *Store) Close() error { return s.client.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }

func (s *Store) Load(ctx context.Context) (adminsdk.Credentials, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return adminsdk.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}
	if len(fields) == 0 {
		return adminsdk.Credentials{}, adminsdk.ErrNoCredentials
	}

	creds := adminsdk.Credentials{
		AccessToken:  fields[fieldAccess],
		RefreshToken: fields[fieldRefresh],
		Identity:     adminsdk.ParseIdentity([]byte(fields[fieldIdentity])),
	}
	if err := creds.Validate(); err != nil {
		return adminsdk.Credentials{}, err
	}
	return creds, nil
}

func (s *Store) Save(ctx context.Context, creds adminsdk.Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	values := []any{fieldAccess, creds.AccessToken, fieldRefresh, creds.RefreshToken}
	if creds.Identity != nil {
		b, err := json.Marshal(creds.Identity)
		if err != nil {
			return fmt.Errorf("encode identity: %w", err)
		}
		values = append(values, fieldIdentity, string(b))
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		pipe.HSet(ctx, s.key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *Store) SetIdentity(ctx context.Context, identity adminsdk.Principal) error {
	b, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	updated, err := setIdentity.Run(ctx, s.client, []string{s.key}, fieldIdentity, string(b)).Int()
	if err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	if updated == 0 {
		return adminsdk.ErrNoCredentials
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}
