package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/aussiebroadwan/dhadmin/pkg/adminsdk"
	"github.com/aussiebroadwan/dhadmin/pkg/cryptox"
)

// aad binds sealed files to this format; a blob sealed for anything else
// fails to open.
var aad = []byte("dhadmin-credentials-v1")

// record is the plaintext inside the sealed file. Identity is kept raw so a
// damaged identity never costs the tokens.
type record struct {
	AccessToken  string          `json:"accessToken"`
	RefreshToken string          `json:"refreshToken"`
	Identity     json.RawMessage `json:"identity,omitempty"`
}

// Store keeps credentials in one encrypted file. Writes go to a temporary
// file that is renamed over the old one.
type Store struct {
	mu     sync.Mutex
	path   string
	sealer *cryptox.Sealer
}

var _ adminsdk.CredentialStore = (*Store)(nil)

// New returns a store sealing credentials at path with the given master secret.
func New(path string, secret []byte) (*Store, error) {
	if path == "" {
		return nil, errors.New("credentials file path required")
	}
	sealer, err := cryptox.NewSealer(secret)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create credentials directory: %w", err)
	}
	return &Store{path: filepath.Clean(path), sealer: sealer}, nil
}

// Path returns the sealed file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Ping(ctx context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

func (s *Store) Close() error { return nil }

func (s *Store) Load(ctx context.Context) (adminsdk.Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return adminsdk.Credentials{}, err
	}

	creds := adminsdk.Credentials{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		Identity:     adminsdk.ParseIdentity(rec.Identity),
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

	rec := record{AccessToken: creds.AccessToken, RefreshToken: creds.RefreshToken}
	if creds.Identity != nil {
		b, err := json.Marshal(creds.Identity)
		if err != nil {
			return fmt.Errorf("encode identity: %w", err)
		}
		rec.Identity = b
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(rec)
}

func (s *Store) SetIdentity(ctx context.Context, identity adminsdk.Principal) error {
	b, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.read()
	if err != nil {
		return err
	}
	rec.Identity = b
	return s.write(rec)
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear credentials: %w", err)
	}
	return nil
}

func (s *Store) read() (record, error) {
	sealed, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return record{}, adminsdk.ErrNoCredentials
	}
	if err != nil {
		return record{}, fmt.Errorf("read credentials: %w", err)
	}

	plain, err := s.sealer.Open(sealed, aad)
	if err != nil {
		return record{}, fmt.Errorf("open credentials: %w", err)
	}

	var rec record
	if err := json.Unmarshal(plain, &rec); err != nil {
		return record{}, fmt.Errorf("decode credentials: %w", err)
	}
	return rec, nil
}

func (s *Store) write(rec record) error {
	plain, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}
	sealed, err := s.sealer.Seal(plain, aad)
	if err != nil {
		return fmt.Errorf("seal credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(sealed); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
