/*
Package adminsdk provides a client SDK for the DirectHealth admin API.

# Overview

The package is organized around two main types:

  - SDKClient: unauthenticated calls (sign-in, refresh) and session creation
  - Session: authenticated calls with automatic token refresh

Sign in and use the session:

	client := adminsdk.NewSDKClient("http://localhost:3000/api")
	store := adminsdk.NewMemoryStore()

	session, err := client.AuthenticateWithPassword(ctx, store, email, password, adminsdk.SessionOptions{})
	if err != nil {
		return err
	}

	stats, err := session.DashboardStats(ctx)
	users, err := session.ListUsers(ctx, adminsdk.ListQuery{Search: "smith", Limit: 20})

A session can also be resumed from credentials persisted by an earlier run:

	session := client.NewSession(store, adminsdk.SessionOptions{
		OnSignOut: func(ctx context.Context, cause error) {
			// show the sign-in screen again
		},
	})

# Credential Storage

Tokens live in a CredentialStore, never on the Session itself. Save replaces
the access token, the refresh token and the cached identity together, so a
reader never sees a half-updated pair. MemoryStore is provided here;
persistent stores live with the application.

# Automatic Token Refresh

Every Session call goes through Session.Do, which:

 1. Attaches the stored access token as a Bearer token (or none, if signed out)
 2. On a 401 from a non-authentication path, waits for a token refresh
 3. Replays the request once with the new token

Concurrent calls that hit an expired token share one refresh. While it is in
flight, further 401s join a queue; when it settles, every queued call is
released in arrival order, all with the same outcome. Refreshes are bounded by
SessionOptions.RefreshTimeout.

If the API rejects the refresh token, or none is stored, the session is over:
the store is cleared, OnSignOut runs, and each queued call fails with the 401
it originally received. A refresh that fails for any other reason (network,
timeout, 5xx) fails the queued calls but keeps the stored credentials.

Paths under /admin/auth/ never trigger a refresh.

# Error Handling

Every failure that involves the API is an *APIError with a Kind:

	_, err := session.CreateUser(ctx, payload)
	if apiErr, ok := adminsdk.AsAPIError(err); ok {
		switch apiErr.Kind {
		case adminsdk.KindValidation:
			fmt.Println(apiErr.Banner())
			for _, msg := range apiErr.FieldErrors() {
				fmt.Println(" -", msg)
			}
		case adminsdk.KindNetwork:
			// StatusCode is 0, no response was received
		}
	}

# Thread Safety

Sessions are safe for concurrent use. Share one Session per signed-in
administrator.
*/
package adminsdk
