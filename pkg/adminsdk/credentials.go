package adminsdk

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
)

var (
	// ErrNoCredentials is returned by CredentialStore.Load when nothing is stored.
	ErrNoCredentials = errors.New("adminsdk: no stored credentials")

	// ErrPartialCredentials is returned when only one of the two tokens is set.
	ErrPartialCredentials = errors.New("adminsdk: access and refresh tokens must be stored together")
)

// Principal is the signed-in administrator as reported by the API.
type Principal struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Credentials is everything the client persists between calls.
type Credentials struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	Identity     *Principal `json:"identity,omitempty"`
}

// Validate enforces that both tokens are present.
func (c Credentials) Validate() error {
	if c.AccessToken == "" || c.RefreshToken == "" {
		return ErrPartialCredentials
	}
	return nil
}

// ParseIdentity decodes a stored identity. Unreadable data yields nil, never
// an error; the tokens stored next to it stay usable.
func ParseIdentity(raw []byte) *Principal {
	if len(raw) == 0 {
		return nil
	}
	var p Principal
	if err := json.Unmarshal(raw, &p); err != nil || p.ID == "" {
		return nil
	}
	return &p
}

// CredentialStore persists the session's tokens and identity.
//
// Implementations must make Save and Clear atomic with respect to Load:
// a reader never observes one token without the other.
type CredentialStore interface {
	// Load returns the stored credentials or ErrNoCredentials.
	Load(ctx context.Context) (Credentials, error)

	// Save replaces both tokens and the identity in one step.
	Save(ctx context.Context, creds Credentials) error

	// SetIdentity updates the cached identity. Returns ErrNoCredentials
	// when no tokens are stored.
	SetIdentity(ctx context.Context, identity Principal) error

	// Clear removes tokens and identity.
	Clear(ctx context.Context) error
}

// AccessToken returns the stored access token, or "" when absent.
func AccessToken(ctx context.Context, store CredentialStore) (string, error) {
	creds, err := store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return creds.AccessToken, nil
}

// RefreshToken returns the stored refresh token, or "" when absent.
func RefreshToken(ctx context.Context, store CredentialStore) (string, error) {
	creds, err := store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return creds.RefreshToken, nil
}

// ============================================================================
// MemoryStore
// ============================================================================

// MemoryStore is a process-local CredentialStore. The zero value is ready to use.
type MemoryStore struct {
	mu    sync.RWMutex
	creds *Credentials
}

// Compile-time check that *MemoryStore implements CredentialStore.
var _ CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (Credentials, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.creds == nil {
		return Credentials{}, ErrNoCredentials
	}
	return m.creds.clone(), nil
}

func (m *MemoryStore) Save(ctx context.Context, creds Credentials) error {
	if err := creds.Validate(); err != nil {
		return err
	}

	c := creds.clone()

	m.mu.Lock()
	m.creds = &c
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) SetIdentity(ctx context.Context, identity Principal) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.creds == nil {
		return ErrNoCredentials
	}
	m.creds.Identity = &identity
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.creds = nil
	m.mu.Unlock()
	return nil
}

// clone deep-copies the identity so callers cannot alias stored state.
func (c Credentials) clone() Credentials {
	out := c
	if c.Identity != nil {
		id := *c.Identity
		out.Identity = &id
	}
	return out
}
