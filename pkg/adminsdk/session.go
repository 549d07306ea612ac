package adminsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aussiebroadwan/dhadmin/pkg/slogx"
)

// Session represents an authenticated session with automatic token refresh.
// All Session methods go through Do, which attaches the stored access token
// and recovers from an expired one.
//
// Sessions are safe for concurrent use. Concurrent requests that hit an
// expired token share a single refresh call.
type Session struct {
	client    *SDKClient
	store     CredentialStore
	refresher *refreshCoordinator
}

// Store returns the credential store backing this session.
func (s *Session) Store() CredentialStore {
	return s.store
}

// Identity returns the cached administrator identity, or nil when signed out
// or when no identity was stored.
func (s *Session) Identity(ctx context.Context) (*Principal, error) {
	creds, err := s.store.Load(ctx)
	if errors.Is(err, ErrNoCredentials) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return creds.Identity, nil
}

// SignedIn reports whether tokens are currently stored.
func (s *Session) SignedIn(ctx context.Context) (bool, error) {
	token, err := AccessToken(ctx, s.store)
	if err != nil {
		return false, err
	}
	return token != "", nil
}

// SignOut revokes the refresh token on the server (best effort) and clears
// the stored credentials. It does not fire the OnSignOut hook, which is
// reserved for sessions that end on their own.
func (s *Session) SignOut(ctx context.Context) error {
	log := slogx.FromContext(ctx)

	refreshToken, err := RefreshToken(ctx, s.store)
	if err != nil {
		return fmt.Errorf("failed to read refresh token: %w", err)
	}

	if refreshToken != "" {
		req := Request{
			Method: http.MethodPost,
			Path:   PathSignOut,
			Body:   RefreshRequest{RefreshToken: refreshToken},
		}
		if err := s.Do(ctx, req, nil); err != nil {
			log.Warn("server sign-out failed, clearing local credentials anyway", "error", err)
		}
	}

	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	return nil
}
