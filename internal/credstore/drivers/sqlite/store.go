package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	_ "modernc.org/sqlite"
)

// Store keeps credentials in a SQLite database.
type Store struct {
	db  *sql.DB
	dsn string
}

var _ adminsdk.CredentialStore = (*Store)(nil)

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}

	// One connection: serializes writers and keeps ":memory:" databases whole.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, dsn: dsn}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Load(ctx context.Context) (adminsdk.Credentials, error) {
	var (
		access, refresh string
		identity        sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT access_token, refresh_token, identity FROM credentials WHERE id = 1`,
	).Scan(&access, &refresh, &identity)
	if errors.Is(err, sql.ErrNoRows) {
		return adminsdk.Credentials{}, adminsdk.ErrNoCredentials
	}
	if err != nil {
		return adminsdk.Credentials{}, fmt.Errorf("load credentials: %w", err)
	}

	creds := adminsdk.Credentials{AccessToken: access, RefreshToken: refresh}
	if identity.Valid {
		creds.Identity = adminsdk.ParseIdentity([]byte(identity.String))
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

	identity, err := encodeIdentity(creds.Identity)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO credentials (id, access_token, refresh_token, identity, updated_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			access_token  = excluded.access_token,
			refresh_token = excluded.refresh_token,
			identity      = excluded.identity,
			updated_at    = excluded.updated_at`,
		creds.AccessToken, creds.RefreshToken, identity, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("save credentials: %w", err)
	}
	return nil
}

func (s *Store) SetIdentity(ctx context.Context, identity adminsdk.Principal) error {
	encoded, err := encodeIdentity(&identity)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE credentials SET identity = ?, updated_at = ? WHERE id = 1`,
		encoded, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("set identity: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return adminsdk.ErrNoCredentials
	}
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM credentials WHERE id = 1`); err != nil {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func encodeIdentity(p *adminsdk.Principal) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode identity: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
