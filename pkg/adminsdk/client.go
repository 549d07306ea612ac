package adminsdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultRefreshTimeout bounds a single refresh call. Requests queued behind
// a refresh never wait longer than this for it to settle.
const DefaultRefreshTimeout = 15 * time.Second

// SDKClient is a client for the DirectHealth admin API.
// It provides access to unauthenticated operations and can create authenticated Sessions.
type SDKClient struct {
	// BaseURL is the API root, including the /api prefix
	// (e.g. "http://localhost:3000/api").
	BaseURL    string
	HTTPClient *http.Client

	// UserAgent is sent with every request when set.
	UserAgent string
}

// NewSDKClient creates a new admin API client.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SessionOptions tunes a Session.
type SessionOptions struct {
	// RefreshTimeout bounds each refresh call. Default: DefaultRefreshTimeout.
	RefreshTimeout time.Duration

	// OnSignOut is called when the session ends because the refresh token
	// was rejected or missing. It runs right after the store is cleared and
	// before any queued request is released, so the host can switch to its
	// signed-out state before callers observe their errors.
	OnSignOut func(ctx context.Context, cause error)
}

// NewSession creates a session backed by store. The store may already hold
// credentials from a previous run; an empty store yields a session whose
// requests are sent unauthenticated.
func (c *SDKClient) NewSession(store CredentialStore, opts SessionOptions) *Session {
	if opts.RefreshTimeout <= 0 {
		opts.RefreshTimeout = DefaultRefreshTimeout
	}

	return &Session{
		client:    c,
		store:     store,
		refresher: newRefreshCoordinator(c, store, opts.RefreshTimeout, opts.OnSignOut),
	}
}

// AuthenticateWithPassword signs in, stores the returned credentials and
// returns a session backed by store.
func (c *SDKClient) AuthenticateWithPassword(
	ctx context.Context,
	store CredentialStore,
	email, password string,
	opts SessionOptions,
) (*Session, error) {
	authResp, err := c.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := store.Save(ctx, authResp.Credentials()); err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	return c.NewSession(store, opts), nil
}
