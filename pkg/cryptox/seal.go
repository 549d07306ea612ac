package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// sealVersion prefixes every sealed blob so the format can evolve.
const sealVersion byte = 1

var (
	ErrSealedTooShort = errors.New("cryptox: sealed data too short")
	ErrSealVersion    = errors.New("cryptox: unsupported sealed data version")
	ErrOpen           = errors.New("cryptox: decryption failed")
)

// Sealer encrypts small secrets at rest with XChaCha20-Poly1305 under a key
// derived from a master secret with Argon2id. Each Seal picks a fresh salt
// and nonce.
//
// Sealed layout: [1 version][16 salt][24 nonce][ciphertext + 16 tag]
type Sealer struct {
	secret []byte
}

// NewSealer returns a Sealer for the given master secret.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("cryptox: empty master secret")
	}
	return &Sealer{secret: append([]byte(nil), secret...)}, nil
}

func (s *Sealer) derive(salt []byte) []byte {
	return argon2.IDKey(s.secret, salt, iterations, memory, parallelism, chacha20poly1305.KeySize)
}

// Seal encrypts and authenticates plaintext. aad is authenticated but not
// encrypted and must be passed again to Open.
func (s *Sealer) Seal(plaintext, aad []byte) ([]byte, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.derive(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	out := make([]byte, 0, 1+len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealVersion)
	out = append(out, salt...)
	out = append(out, nonce...)
	return aead.Seal(out, nonce, plaintext, aad), nil
}

// Open reverses Seal. A wrong secret, wrong aad or any tampering yields ErrOpen.
func (s *Sealer) Open(sealed, aad []byte) ([]byte, error) {
	header := 1 + saltLength + chacha20poly1305.NonceSizeX
	if len(sealed) < header+chacha20poly1305.Overhead {
		return nil, ErrSealedTooShort
	}
	if sealed[0] != sealVersion {
		return nil, ErrSealVersion
	}

	salt := sealed[1 : 1+saltLength]
	nonce := sealed[1+saltLength : header]

	aead, err := chacha20poly1305.NewX(s.derive(salt))
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, sealed[header:], aad)
	if err != nil {
		return nil, ErrOpen
	}
	return plaintext, nil
}

// LoadOrCreateKey reads the master secret at path, generating and writing a
// random one (mode 0600) if the file does not exist yet.
func LoadOrCreateKey(path string) ([]byte, error) {
	path = filepath.Clean(path)

	data, err := os.ReadFile(path)
	if err == nil {
		if len(data) == 0 {
			return nil, fmt.Errorf("master key file %s is empty", path)
		}
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read master key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create key directory: %w", err)
	}

	raw := make([]byte, keyLength)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate master key: %w", err)
	}
	key := []byte(base64.RawURLEncoding.EncodeToString(raw))

	// O_EXCL so two processes racing on first use do not overwrite each other
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, os.ErrExist) {
		return os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create master key file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(key); err != nil {
		return nil, fmt.Errorf("failed to write master key: %w", err)
	}
	return key, nil
}
