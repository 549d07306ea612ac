package adminsdk

import (
	"context"
	"net/http"
)

// SignIn exchanges an administrator's email and password for tokens.
// Nothing is stored; see AuthenticateWithPassword.
func (c *SDKClient) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	var authResp AuthResponse
	err := c.postUnauthenticated(ctx, PathSignIn, SignInRequest{Email: email, Password: password}, &authResp)
	if err != nil {
		return nil, err
	}
	return &authResp, nil
}

// Refresh exchanges a refresh token for a new token pair.
//
// The call goes straight to the refresh endpoint: no access token is
// attached and a 401 is returned to the caller as-is.
func (c *SDKClient) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	var authResp AuthResponse
	err := c.postUnauthenticated(ctx, PathRefresh, RefreshRequest{RefreshToken: refreshToken}, &authResp)
	if err != nil {
		return nil, err
	}
	return &authResp, nil
}

// postUnauthenticated sends a JSON POST without an Authorization header.
func (c *SDKClient) postUnauthenticated(ctx context.Context, path string, in, out any) error {
	req, err := Request{Method: http.MethodPost, Path: path, Body: in}.prepare()
	if err != nil {
		return err
	}

	status, body, err := c.send(ctx, req, "")
	if err != nil {
		return NetworkError(err)
	}
	if !isSuccess(status) {
		return NormalizeResponse(status, body)
	}

	return decodeBody(body, out)
}
