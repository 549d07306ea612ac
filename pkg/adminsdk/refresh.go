package adminsdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/aussiebroadwan/dhadmin/pkg/slogx"
)

// ErrNoRefreshToken is the sign-out cause when a refresh is needed but no
// refresh token is stored.
var ErrNoRefreshToken = errors.New("adminsdk: no refresh token available")

// refreshCoordinator makes sure at most one refresh call is in flight per
// session and releases every request that collided with it once it settles.
//
// States: idle (inflight == false) and refreshing (inflight == true). The
// first 401 moves idle -> refreshing and starts the refresh; later 401s only
// join the queue. Leaving refreshing happens under mu together with
// detaching the queue, so a request that arrives afterwards starts a new
// cycle instead of joining a batch that has already been released.
type refreshCoordinator struct {
	client    *SDKClient
	store     CredentialStore
	timeout   time.Duration
	onSignOut func(ctx context.Context, cause error)

	mu       sync.Mutex
	inflight bool
	queue    []*pendingRequest
}

// pendingRequest is a caller parked until the in-flight refresh settles.
// result is buffered so settling never blocks and happens exactly once.
type pendingRequest struct {
	original *APIError
	result   chan error
}

// refreshOutcome is what a settled refresh tells its waiters.
type refreshOutcome struct {
	err     error
	signOut bool // the session is over; waiters get their original 401
}

func newRefreshCoordinator(
	client *SDKClient,
	store CredentialStore,
	timeout time.Duration,
	onSignOut func(ctx context.Context, cause error),
) *refreshCoordinator {
	return &refreshCoordinator{
		client:    client,
		store:     store,
		timeout:   timeout,
		onSignOut: onSignOut,
	}
}

// await parks the caller until the current refresh settles, starting one if
// none is running. It returns nil when the caller should replay its request
// with the new token. Once queued a request cannot be withdrawn; the refresh
// timeout bounds the wait.
func (c *refreshCoordinator) await(ctx context.Context, original *APIError) error {
	p := &pendingRequest{
		original: original,
		result:   make(chan error, 1),
	}

	c.mu.Lock()
	c.queue = append(c.queue, p)
	start := !c.inflight
	c.inflight = true
	c.mu.Unlock()

	if start {
		// The refresh serves every queued caller, so it must not die with
		// the context of whichever caller happened to trigger it.
		go c.run(context.WithoutCancel(ctx))
	}

	return <-p.result
}

// run performs one refresh and settles the whole batch.
func (c *refreshCoordinator) run(ctx context.Context) {
	log := slogx.FromContext(ctx)

	outcome := c.refresh(ctx)

	if outcome.signOut {
		log.Warn("token refresh failed, ending session", "error", outcome.err)
		if err := c.store.Clear(ctx); err != nil {
			log.Error("failed to clear credentials", "error", err)
		}
		if c.onSignOut != nil {
			c.onSignOut(ctx, outcome.err)
		}
	} else if outcome.err != nil {
		log.Warn("token refresh failed, keeping session", "error", outcome.err)
	}

	c.mu.Lock()
	queue := c.queue
	c.queue = nil
	c.inflight = false
	c.mu.Unlock()

	if outcome.err == nil {
		log.Info("access token refreshed", "released", len(queue))
	}

	// Settle in arrival order.
	for _, p := range queue {
		switch {
		case outcome.err == nil:
			p.result <- nil
		case outcome.signOut:
			p.result <- p.original
		default:
			p.result <- outcome.err
		}
	}
}

// refresh calls the refresh endpoint and stores the new credentials.
// Rejections (4xx other than 408 and 429, missing or unusable tokens) end the
// session; transport failures, timeouts, throttling and 5xx do not.
func (c *refreshCoordinator) refresh(ctx context.Context) refreshOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	refreshToken, err := RefreshToken(ctx, c.store)
	if err != nil {
		return refreshOutcome{err: fmt.Errorf("failed to read refresh token: %w", err)}
	}
	if refreshToken == "" {
		return refreshOutcome{err: ErrNoRefreshToken, signOut: true}
	}

	authResp, err := c.client.Refresh(ctx, refreshToken)
	if err != nil {
		apiErr, ok := AsAPIError(err)
		return refreshOutcome{err: err, signOut: ok && refreshRejected(apiErr.StatusCode)}
	}

	creds := authResp.Credentials()
	if err := creds.Validate(); err != nil {
		return refreshOutcome{err: fmt.Errorf("invalid refresh response: %w", err), signOut: true}
	}
	if err := c.store.Save(ctx, creds); err != nil {
		return refreshOutcome{err: fmt.Errorf("failed to store refreshed credentials: %w", err)}
	}

	return refreshOutcome{}
}

// refreshRejected reports whether a refresh failure status means the refresh
// token itself was refused. Throttled or timed-out attempts can succeed later.
func refreshRejected(status int) bool {
	switch status {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return status >= 400 && status < 500
}
